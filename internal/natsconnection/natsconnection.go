package natsconnection

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Fishwaldo/LineLogger/internal"
	"github.com/go-logr/logr"
	"github.com/nats-io/nats.go"
	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/viper"
)

func init() {
	viper.SetDefault("nats.enabled", false)
	viper.SetDefault("nats.host", "localhost")
	viper.SetDefault("nats.port", 4222)
	viper.SetDefault("nats.credfile", "")
	viper.SetDefault("nats.subject", "sensor.lines")
	internal.RegisterPlugin("nats", &Nats)
}

type NatsConnS struct {
	conn    *nats.Conn
	logger  logr.Logger
	subject string
	mx      deadlock.Mutex
}

var Nats NatsConnS

func (nc *NatsConnS) Start(log logr.Logger) error {
	nc.logger = log
	if !viper.GetBool("nats.enabled") {
		nc.logger.V(1).Info("NATS Publishing Disabled")
		return nil
	}

	url := fmt.Sprintf("nats://%s:%d", viper.GetString("nats.host"), viper.GetInt("nats.port"))
	var options []nats.Option

	if credfile := viper.GetString("nats.credfile"); credfile != "" {
		if _, err := os.Stat(credfile); err != nil {
			return fmt.Errorf("credential file: %w", err)
		}
		options = append(options, nats.UserCredentials(credfile))
	}
	options = append(options, nats.Name(viper.GetString("name")))
	options = append(options, nats.DisconnectErrHandler(nc.serverDisconnect))
	options = append(options, nats.ReconnectHandler(nc.serverReconnected))

	conn, err := nats.Connect(url, options...)
	if err != nil {
		return fmt.Errorf("can't connect to NATS server %s: %w", url, err)
	}
	nc.mx.Lock()
	nc.conn = conn
	nc.subject = fmt.Sprintf("%s.%s", viper.GetString("nats.subject"), viper.GetString("name"))
	nc.mx.Unlock()
	nc.logger.Info("Connected to NATS Server", "name", conn.ConnectedServerName(), "subject", nc.subject)

	internal.RegisterProcessor("nats", nc.process)
	return nil
}

func (nc *NatsConnS) Stop() {
	internal.UnregisterProcessor("nats")
	nc.mx.Lock()
	defer nc.mx.Unlock()
	if nc.conn == nil {
		return
	}
	if err := nc.conn.Drain(); err != nil {
		nc.logger.Error(err, "Can't Drain NATS Connection")
		nc.conn.Close()
	}
	nc.conn = nil
}

func (nc *NatsConnS) process(domain string, data interface{}) {
	if domain != "line" {
		return
	}
	if err := nc.Publish(data); err != nil {
		nc.logger.Error(err, "Can't Publish Line", "subject", nc.subject)
	}
}

// Publish sends data as JSON on the configured subject. It does not wait
// for the server.
func (nc *NatsConnS) Publish(data interface{}) error {
	nc.mx.Lock()
	defer nc.mx.Unlock()
	if nc.conn == nil {
		return nats.ErrConnectionClosed
	}
	msg := nats.NewMsg(nc.subject)
	msg.Header.Add("X-Msg-Time", time.Now().Format(time.RFC3339))
	var err error
	if msg.Data, err = json.Marshal(data); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nc.conn.PublishMsg(msg)
}

func (nc *NatsConnS) serverDisconnect(c *nats.Conn, err error) {
	nc.logger.Error(err, "Nats Server Disconnected")
}

func (nc *NatsConnS) serverReconnected(c *nats.Conn) {
	nc.logger.Info("Nats Server Reconnected", "name", c.ConnectedServerName())
}
