package kafka

import (
	"crypto/tls"

	"github.com/IBM/sarama"

	"github.com/ajitpratap0/oddcollector/pkg/errors"
)

// Admin is the part of sarama.ClusterAdmin the adapter uses.
type Admin interface {
	ListTopics() (map[string]sarama.TopicDetail, error)
	Close() error
}

// Opener connects an Admin for p.
type Opener func(p *Plugin) (Admin, error)

// SaramaConfig builds the client configuration of p.
func SaramaConfig(p *Plugin) *sarama.Config {
	config := sarama.NewConfig()
	if p.ClientID != "" {
		config.ClientID = p.ClientID
	}

	switch p.SecurityProtocol {
	case ProtocolSSL, ProtocolSASLSSL:
		config.Net.TLS.Enable = true
		config.Net.TLS.Config = &tls.Config{
			InsecureSkipVerify: p.TLSInsecureSkipVerify,
		}
	}

	switch p.SecurityProtocol {
	case ProtocolSASLPlaintext, ProtocolSASLSSL:
		config.Net.SASL.Enable = true
		config.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		config.Net.SASL.User = p.SASLUsername
		config.Net.SASL.Password = p.SASLPassword
	}

	return config
}

// Open connects a sarama cluster admin to the brokers of p.
func Open(p *Plugin) (Admin, error) {
	admin, err := sarama.NewClusterAdmin(p.Brokers, SaramaConfig(p))
	if err != nil {
		return nil, errors.NewDataSourceError(errors.ErrorTypeConnection, err)
	}
	return admin, nil
}
