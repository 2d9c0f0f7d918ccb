package sessions

// Subscribe returns a channel receiving the session after every transition, starting
// with the current one. The channel holds only the latest snapshot: a slow reader
// skips intermediate states and never blocks a writer. cancel closes the channel.
func (s *State) Subscribe() (<-chan Session, func()) {
	ch := make(chan Session, 1)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.current.Load().clone()
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (s *State) publish(next Session) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- next.clone()
	}
}
