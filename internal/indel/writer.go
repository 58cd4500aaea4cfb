package indel

import "fmt"

// EventWriter defines the interface for writing events.
type EventWriter interface {
	WriteHeader() error
	Write(e *Event) error
	Flush() error
}

// WriteAll streams every remaining event of the scanner to writer and
// flushes it. The header is the caller's responsibility.
func (s *Scanner) WriteAll(writer EventWriter) (Summary, error) {
	var sum Summary
	for e := s.Next(); e != nil; e = s.Next() {
		if err := writer.Write(e); err != nil {
			return sum, fmt.Errorf("write event: %w", err)
		}
		sum.add(e)
	}
	return sum, writer.Flush()
}

// WriteEvents writes already collected events to writer and flushes it.
func WriteEvents(events []Event, writer EventWriter) error {
	for i := range events {
		if err := writer.Write(&events[i]); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
	}
	return writer.Flush()
}
