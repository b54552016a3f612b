package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"modnotifier/internal/update"
)

const (
	defaultSpinnerInterval = 120 * time.Millisecond
	defaultSpinnerDelay    = 250 * time.Millisecond
)

type spinnerEvent struct {
	stage  update.Stage
	detail string
}

// checkSpinner shows the stage of a running check on a single line. It stays
// hidden for checks that finish within the delay.
type checkSpinner struct {
	writer        io.Writer
	delay         time.Duration
	frameInterval time.Duration
	frames        []rune

	events chan spinnerEvent
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once

	mu       sync.Mutex
	frameIdx int
}

func newCheckSpinner(w io.Writer, delay time.Duration) *checkSpinner {
	return newCustomCheckSpinner(w, delay, defaultSpinnerInterval)
}

func newCustomCheckSpinner(w io.Writer, delay, frameInterval time.Duration) *checkSpinner {
	if w == nil {
		w = io.Discard
	}
	sp := &checkSpinner{
		writer:        w,
		delay:         delay,
		frameInterval: frameInterval,
		frames:        []rune{'|', '/', '-', '\\'},
		events:        make(chan spinnerEvent, 8),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	go sp.loop()
	return sp
}

// Stage matches update.ProgressFunc and is safe on a nil spinner.
func (s *checkSpinner) Stage(stage update.Stage, detail string) {
	if s == nil {
		return
	}
	select {
	case <-s.stopCh:
		return
	default:
	}
	select {
	case s.events <- spinnerEvent{stage: stage, detail: detail}:
	default:
	}
}

func (s *checkSpinner) Stop() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		close(s.stopCh)
		<-s.doneCh
	})
}

func (s *checkSpinner) loop() {
	defer close(s.doneCh)

	var delayCh <-chan time.Time
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		delayCh = timer.C
	}

	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	var current spinnerEvent
	hasStage := false
	visible := s.delay == 0

	for {
		select {
		case <-s.stopCh:
			if visible {
				s.clearLine()
			}
			return
		case ev := <-s.events:
			current = ev
			hasStage = true
			if visible {
				s.render(current)
			}
		case <-ticker.C:
			if visible && hasStage {
				s.render(current)
			}
		case <-delayCh:
			delayCh = nil
			visible = true
			if hasStage {
				s.render(current)
			}
		}
	}
}

func (s *checkSpinner) render(ev spinnerEvent) {
	frame := s.nextFrame()
	message := formatStageMessage(ev.stage, ev.detail)
	_, _ = fmt.Fprintf(s.writer, "\r\033[2K%c %s", frame, message)
}

func (s *checkSpinner) clearLine() {
	_, _ = fmt.Fprint(s.writer, "\r\033[2K")
}

func (s *checkSpinner) nextFrame() rune {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame := s.frames[s.frameIdx%len(s.frames)]
	s.frameIdx++
	return frame
}

var stageMessages = map[update.Stage]string{
	update.StageFetching:  "Asking the registry for the latest versions...",
	update.StageIndexing:  "Indexing registry packages...",
	update.StageComparing: "Comparing installed modules...",
	update.StageDone:      "Wrapping up...",
}

func formatStageMessage(stage update.Stage, detail string) string {
	message := stageMessages[stage]
	if strings.TrimSpace(message) == "" {
		message = "Checking for updates..."
	}
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return message
	}
	return fmt.Sprintf("%s - %s", message, detail)
}
