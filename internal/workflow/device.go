package workflow

// SetMicrophone records a capture device availability change. An unavailable
// report raises an error alert unless the microphone was already known to be
// missing.
func (s *Store) SetMicrophone(available bool, message string) {
	s.update(func() {
		prev := s.st.microphone
		s.st.microphone = MicrophoneView{Known: true, Available: available}
		if available {
			return
		}
		s.st.microphone.Message = message
		if !prev.Known || prev.Available {
			s.pushAlertLocked(AlertError, "device", "", message)
		}
	})
}
