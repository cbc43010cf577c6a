package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log"

	"ctrl-ai/src/llm"
	"ctrl-ai/src/singleinstance"
)

// Triggerer schedules one pipeline run without blocking; false means refused.
type Triggerer interface {
	Trigger(ctx context.Context, mode llm.Mode) bool
}

// HotkeyListener is the OS-level chord subscription.
type HotkeyListener interface {
	Register(chords map[string]func()) error
	Start() error
	Stop()
}

// Loop is the single long-lived coordinator: it owns the hotkey subscription
// and the delegation server and hands every trigger to the dispatcher.
type Loop struct {
	dispatcher Triggerer
	srv        singleinstance.Server
	hotkeys    HotkeyListener
	triggerCh  chan llm.Mode
}

func New(d Triggerer, srv singleinstance.Server) *Loop {
	if srv == nil {
		srv = singleinstance.NewServer()
	}
	return &Loop{
		dispatcher: d,
		srv:        srv,
		triggerCh:  make(chan llm.Mode, 8),
	}
}

// Post queues a trigger from any goroutine (hotkey hook, tray menu). It never
// blocks; a full queue drops the trigger.
func (l *Loop) Post(mode llm.Mode) bool {
	select {
	case l.triggerCh <- mode:
		return true
	default:
		log.Printf("eventloop: trigger queue full, dropping %s", mode)
		return false
	}
}

// StartHotkeys binds chord -> mode and starts the listener. The listener is
// stopped when Run returns.
func (l *Loop) StartHotkeys(listener HotkeyListener, bindings map[llm.Mode]string) error {
	chords := make(map[string]func(), len(bindings))
	for mode, chord := range bindings {
		if chord == "" {
			continue
		}
		mode := mode
		chords[chord] = func() { l.Post(mode) }
	}
	if len(chords) == 0 {
		return errors.New("no hotkeys configured")
	}
	if err := listener.Register(chords); err != nil {
		return err
	}
	if err := listener.Start(); err != nil {
		return err
	}
	l.hotkeys = listener
	return nil
}

// Run starts the delegation server and processes triggers until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.srv.Start(ctx); err != nil {
		return fmt.Errorf("another instance appears to be running: %w", err)
	}
	defer l.srv.Close()
	if l.hotkeys != nil {
		defer l.hotkeys.Stop()
	}
	log.Printf("Resident listening on 127.0.0.1:%d", l.srv.Port())

	reqCh := make(chan singleinstance.Conn, 4)
	var serveErr error
	go func() {
		defer close(reqCh)
		for {
			conn, err := l.srv.Next(ctx)
			if err != nil {
				serveErr = err
				return
			}
			reqCh <- conn
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case mode := <-l.triggerCh:
			l.dispatcher.Trigger(ctx, mode)
		case conn, ok := <-reqCh:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				return fmt.Errorf("trigger server stopped: %w", serveErr)
			}
			l.handleConn(ctx, conn)
		}
	}
}

// handleConn answers a delegated trigger as soon as it is accepted or refused;
// the pipeline itself runs on the worker pool.
func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	defer conn.Close()
	mode, err := llm.ParseMode(conn.Request().Mode)
	if err != nil {
		log.Printf("eventloop: delegated trigger rejected: %v", err)
		_ = conn.RespondError(err.Error())
		return
	}
	if !l.dispatcher.Trigger(ctx, mode) {
		_ = conn.RespondError(singleinstance.ErrBusy.Error())
		return
	}
	if err := conn.RespondSuccess(); err != nil {
		log.Printf("eventloop: responding to delegated trigger: %v", err)
	}
}
