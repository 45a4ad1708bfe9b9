package mqtt

// driveLifecycle drains the notification stream until it is closed.
//
// paho performs reconnection itself; this loop only reports what happened.
// It never returns early on an error event and never panics.
func (s *Session) driveLifecycle() {
	defer s.wg.Done()

	for ev := range s.events.ch {
		s.observe(ev)
	}
}

func (s *Session) observe(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("MQTT event hook panic recovered",
				"event", ev.Kind.String(),
				"panic", r,
			)
		}
	}()

	broker := s.addr.String()
	switch ev.Kind {
	case EventConnAck:
		s.logger.Info("MQTT connected", "broker", broker, "client_id", s.clientID)
	case EventError:
		s.logger.Warn("MQTT connection lost", "broker", broker, "error", ev.Err)
	case EventReconnecting:
		s.logger.Info("MQTT reconnecting", "broker", broker)
	default:
		s.logger.Debug("MQTT packet", "event", ev.Kind.String(), "topic", ev.Topic)
	}

	if s.onEvent != nil {
		s.onEvent(ev)
	}
}
