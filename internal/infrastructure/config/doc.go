// Package config handles loading and validating logship configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Unknown keys anywhere in the file are rejected, including inside the
// mqtt.encoder block, so a misspelt option fails at startup instead of
// being silently ignored.
//
// Security Considerations:
//   - Broker credentials should be set via LOGSHIP_MQTT_USERNAME and
//     LOGSHIP_MQTT_PASSWORD rather than committed to the file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/logship.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Topic)
package config
