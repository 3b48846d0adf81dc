package main

import (
	"encoding/json"
	"io"
	"log"
	"sync"

	"github.com/ChamsBouzaiene/flowsmith/internal/engine"
)

// eventStream writes engine events as NDJSON, one object per line.
type eventStream struct {
	ch   chan engine.Event
	done sync.WaitGroup
}

func newEventStream(w io.Writer) *eventStream {
	s := &eventStream{ch: make(chan engine.Event, 64)}
	enc := json.NewEncoder(w)
	s.done.Add(1)
	go func() {
		defer s.done.Done()
		for ev := range s.ch {
			if err := enc.Encode(ev); err != nil {
				log.Printf("⚠️  Failed to write event %s: %v", ev.Kind, err)
			}
		}
	}()
	return s
}

func (s *eventStream) Ch() chan<- engine.Event { return s.ch }

// Close flushes pending events. No hook may send after Close.
func (s *eventStream) Close() {
	close(s.ch)
	s.done.Wait()
}
