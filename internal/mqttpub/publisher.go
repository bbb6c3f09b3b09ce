// Package mqttpub is the thin MQTT publish path: it turns a Store's
// dirty topic groups into retained MQTT messages, and publishes AT
// command responses. Config parsing, Home Assistant discovery payload
// shape and subscription handling are glue left to the caller; this
// package owns only the publish connection itself.
package mqttpub

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/tsunproxy/gen3plus/internal/infos"
)

// Publisher wraps a paho MQTT client configured the way the teacher
// wires its own broker connection: clean session, auto-reconnect, a
// handler that just logs connection loss rather than panicking.
type Publisher struct {
	client    mqtt.Client
	topicRoot string
	log       *logrus.Entry
}

// New connects to broker and returns a ready Publisher.
func New(broker, clientID, username, password, topicRoot string, log *logrus.Entry) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetUsername(username).
		SetPassword(password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("mqtt connection lost")
		})

	client := mqtt.NewClient(opts)
	if tok := client.Connect(); tok.Wait() && tok.Error() != nil {
		return nil, fmt.Errorf("mqttpub: connect: %w", tok.Error())
	}
	return &Publisher{client: client, topicRoot: topicRoot, log: log}, nil
}

// PublishDirty publishes one retained message per dirty topic group under
// <topicRoot>/<uniqueID>/<group>. The payload is always the empty JSON
// object {}: register values from store are not serialized.
func (p *Publisher) PublishDirty(uniqueID string, store *infos.Store, groups []infos.TopicGroup) {
	for _, group := range groups {
		topic := fmt.Sprintf("%s/%s/%s", p.topicRoot, uniqueID, group)
		p.publishGroupSnapshot(topic, store, group)
	}
}

func (p *Publisher) publishGroupSnapshot(topic string, store *infos.Store, group infos.TopicGroup) {
	// The original publishes one JSON document per group rather than
	// one message per register. Here the document is the fixed
	// placeholder {}; store and group are not read.
	tok := p.client.Publish(topic, 0, true, []byte("{}"))
	tok.Wait()
	if err := tok.Error(); err != nil {
		p.log.WithError(err).WithField("topic", topic).Warn("publish failed")
	}
}

// PublishATResponse publishes a blocked/accepted AT command result,
// mirroring the original's at_resp publish on ACL rejection.
func (p *Publisher) PublishATResponse(uniqueID, cmd string, blocked bool) {
	topic := fmt.Sprintf("%s/%s/at_resp", p.topicRoot, uniqueID)
	status := "accepted"
	if blocked {
		status = "blocked"
	}
	tok := p.client.Publish(topic, 0, false, []byte(fmt.Sprintf(`{"cmd":%q,"status":%q}`, cmd, status)))
	tok.Wait()
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
