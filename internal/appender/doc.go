// Package appender publishes log records to an MQTT broker.
//
// An Appender encodes each record with a pluggable encode.Encoder, resolves
// the destination topic from a template, and publishes the payload through
// a single long-lived mqtt.Session. The session reconnects on its own; the
// appender never queues records while the broker is unreachable.
//
// # Building
//
//	app, err := appender.NewBuilder().
//	    Broker("mqtt://broker.local:1883").
//	    Topic("site/logs/{level}").
//	    QoS(1).
//	    Build()
//	if err != nil {
//	    return err
//	}
//	defer app.Close()
//
// Defaults: broker mqtt://localhost:1883, client id log4rs_client, topic
// "logs", QoS 0, no credentials, the default pattern encoder.
//
// # Topics
//
// The first "{level}" in the topic template is replaced by the record's
// lowercase level name, so "app/{level}" sends warnings to "app/warn".
//
// # Concurrency
//
// Append is safe for concurrent use. Publishes are serialised by the
// session: at most one is in flight at a time, and records appended by one
// goroutine are published in the order that goroutine appended them. No
// ordering is promised across goroutines.
//
// # slog
//
// Handler adapts an Appender to slog.Handler so application code can log
// through the standard library:
//
//	logger := slog.New(appender.NewHandler(app, nil))
//	logger.Info("door opened", "zone", "hall")
package appender
