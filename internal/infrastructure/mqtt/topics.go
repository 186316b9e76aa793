package mqtt

import "fmt"

// TopicPrefix is the root of every sqlbridge topic.
const TopicPrefix = "sqlbridge"

// Topics provides builders for sqlbridge MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	topics.Stats("3f2a9c", "orders")
//	// Returns: "sqlbridge/stats/3f2a9c/orders"
type Topics struct{}

// Status returns the retained online/offline topic for a process instance.
// It carries the Last Will and Testament.
//
// Example: sqlbridge/status/3f2a9c
func (Topics) Status(instance string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefix, instance)
}

// Stats returns the topic for periodic worker statistics of one database.
//
// Example: sqlbridge/stats/3f2a9c/orders
func (Topics) Stats(instance, name string) string {
	return fmt.Sprintf("%s/stats/%s/%s", TopicPrefix, instance, name)
}

// AllStatus returns a wildcard matching the status of every instance.
func (Topics) AllStatus() string {
	return TopicPrefix + "/status/+"
}

// AllStats returns a wildcard matching statistics from every instance.
func (Topics) AllStats() string {
	return TopicPrefix + "/stats/#"
}
