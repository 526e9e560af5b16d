package audit

import (
	"fmt"

	"github.com/upe-portal/interview-relay/internal/config"
)

// NewPublisher builds the publisher selected by audit.driver. It returns nil
// for "none".
func NewPublisher(cfg config.AuditConfig) (Publisher, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "kafka":
		return NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic), nil
	case "redis":
		return NewRedisSink(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.ChannelPrefix), nil
	default:
		return nil, fmt.Errorf("unknown audit driver %q", cfg.Driver)
	}
}
