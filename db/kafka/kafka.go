package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"

	dbType "dataplatform.io/integrator-operator/db/types"
	"github.com/pkg/errors"
	ctrl "sigs.k8s.io/controller-runtime"
)

func newDialer(target dbType.ProbeTarget) (*kafkago.Dialer, error) {
	dialer := &kafkago.Dialer{
		Timeout:   target.Timeout,
		DualStack: true,
	}
	if target.Username != "" {
		dialer.SASLMechanism = plain.Mechanism{
			Username: target.Username,
			Password: target.Password,
		}
	}
	if target.TLSCA != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(target.TLSCA)) {
			return nil, errors.New("cannot parse kafka CA certificate")
		}
		dialer.TLS = &tls.Config{RootCAs: pool}
	}
	return dialer, nil
}

func checkBroker(ctx context.Context, dialer *kafkago.Dialer, addr, topic string) error {
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if topic != "" {
		_, err = conn.ReadPartitions(topic)
		return err
	}
	_, err = conn.Brokers()
	return err
}

// VerifyCredentials checks the issued credentials against the Kafka brokers
func VerifyCredentials(ctx context.Context, target dbType.ProbeTarget) error {
	log := ctrl.Log.WithName("kafka")

	if target.Port < 1 {
		target.Port = 9092
	}

	dialer, err := newDialer(target)
	if err != nil {
		return err
	}

	for _, host := range target.Hosts {
		err = checkBroker(ctx, dialer, target.Addr(host), target.Database)
		if err != nil {
			log.Error(err, fmt.Sprintf("Cannot reach broker %s", host))
		} else {
			log.Info(fmt.Sprintf("Kafka connectivity check passed on broker %s", host))
			return nil
		}
	}

	return err
}
