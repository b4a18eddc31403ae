// Package mqtt provides MQTT client connectivity for the incident
// management core.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The service publishes incident lifecycle events on retained
// per-incident status topics so downstream consumers (dashboards,
// notification services, SIEM collectors) can track incident state
// without polling the REST API. The broker decouples those consumers
// from the core service.
//
//	Incident Core → MQTT Broker → Downstream Consumers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Per-organization ACLs apply on the second topic level
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all incident status updates
//	err = client.Subscribe(mqtt.Topics{}.AllStatuses(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a status update
//	topic := mqtt.Topics{}.IncidentStatus("org-a1b2", "inc-c3d4")
//	client.Publish(topic, []byte(`{"status":"analyzing"}`), 1, true)
package mqtt
