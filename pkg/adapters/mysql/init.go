package mysql

import (
	"github.com/ajitpratap0/oddcollector/pkg/adapter"
	"github.com/ajitpratap0/oddcollector/pkg/plugin"
)

func init() {
	plugin.Default().MustRegister(Type, func() plugin.Plugin { return &Plugin{} })
	adapter.Register(Type, New)
}
