package kafka

import "github.com/segmentio/kafka-go"

// outgoingHeaders collects headers (trace context included) for a message
// being produced.
type outgoingHeaders map[string]string

func (m outgoingHeaders) Get(k string) string { return m[k] }
func (m outgoingHeaders) Set(k, v string)     { m[k] = v }
func (m outgoingHeaders) Keys() []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	return ks
}

func (m outgoingHeaders) kafkaHeaders() []kafka.Header {
	hs := make([]kafka.Header, 0, len(m))
	for k, v := range m {
		hs = append(hs, kafka.Header{Key: k, Value: []byte(v)})
	}
	return hs
}

// incomingHeaders is a read-only view over the headers of a consumed message.
type incomingHeaders []kafka.Header

func (h incomingHeaders) Get(k string) string {
	for _, x := range h {
		if x.Key == k {
			return string(x.Value)
		}
	}
	return ""
}

func (h incomingHeaders) Set(string, string) {}

func (h incomingHeaders) Keys() []string {
	ks := make([]string, 0, len(h))
	for _, x := range h {
		ks = append(ks, x.Key)
	}
	return ks
}
