package mqtt

import (
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type published struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

type fakeClient struct {
	paho.Client

	connected bool
	lock      sync.Mutex
	published []published
	subs      []string
	unsubs    []string
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Publish(topic string, qos byte, retain bool, payload interface{}) paho.Token {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.published = append(c.published, published{
		topic: topic, qos: qos, retain: retain, payload: payload.([]byte),
	})
	return &paho.DummyToken{}
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.subs = append(c.subs, topic)
	return &paho.DummyToken{}
}

func (c *fakeClient) Unsubscribe(topics ...string) paho.Token {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.unsubs = append(c.unsubs, topics...)
	return &paho.DummyToken{}
}

func (c *fakeClient) messages() []published {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]published(nil), c.published...)
}

type fakeMessage struct {
	paho.Message
	topic   string
	payload []byte
}

func (m *fakeMessage) Topic() string   { return m.topic }
func (m *fakeMessage) Payload() []byte { return m.payload }

func (c *fakeClient) subscribed() []string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]string(nil), c.subs...)
}

func newFakeQueue(prefix string) (*Queue, *fakeClient) {
	fc := &fakeClient{connected: true}
	return &Queue{Client: fc, TopicPrefix: prefix}, fc
}
