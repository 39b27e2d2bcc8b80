package simproc

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	cfr "github.com/timpalpant/go-simcfr"
)

// DrainTimeout bounds how long Close waits for a simulator to finish
// writing its output before it is killed.
var DrainTimeout = 5 * time.Second

// CancelGrace bounds how long a cancelled request waits for its reply
// before the simulator is killed. A reply that arrives in time keeps the
// request stream in sync, so the session stays usable.
var CancelGrace = 100 * time.Millisecond

// Session implements cfr.Session and cfr.Reseeder by exchanging
// JSON messages with a simulator.
type Session struct {
	seed int64
	enc  *json.Encoder
	dec  *json.Decoder
	bw   *bufio.Writer

	// shutdown releases the transport after the quit request was sent.
	// kill aborts it immediately.
	shutdown func() error
	kill     func()
	killed   bool
	closed   bool
}

// NewSession returns a Session for the given seed that writes requests
// to w and reads replies from r. shutdown is called by Close once the
// quit request has been sent; kill is called if a request is cancelled.
func NewSession(seed int64, r io.Reader, w io.Writer, shutdown func() error, kill func()) *Session {
	bw := bufio.NewWriter(w)
	return &Session{
		seed:     seed,
		enc:      json.NewEncoder(bw),
		dec:      json.NewDecoder(bufio.NewReader(r)),
		bw:       bw,
		shutdown: shutdown,
		kill:     kill,
	}
}

type result struct {
	resp response
	err  error
}

// roundTrip sends one request and waits for its reply. If ctx is done
// first it still waits up to CancelGrace for the reply. The request may
// have been applied even though ctx.Err() is returned. If no reply
// arrives in time the transport is killed, leaving the session unusable.
func (s *Session) roundTrip(ctx context.Context, req request) (response, error) {
	if s.closed || s.killed {
		return response{}, errors.New("session is closed")
	}

	if err := ctx.Err(); err != nil {
		return response{}, err
	}

	done := make(chan result, 1)
	go func() {
		if err := s.enc.Encode(req); err != nil {
			done <- result{err: errors.Wrapf(err, "sending %s", req.Cmd)}
			return
		}

		if err := s.bw.Flush(); err != nil {
			done <- result{err: errors.Wrapf(err, "sending %s", req.Cmd)}
			return
		}

		var resp response
		if err := s.dec.Decode(&resp); err != nil {
			done <- result{err: errors.Wrapf(cfr.ErrProtocol, "reading reply to %s: %v", req.Cmd, err)}
			return
		}

		done <- result{resp: resp}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return response{}, r.err
		}

		if r.resp.Error != "" {
			return response{}, errors.Wrapf(cfr.ErrProtocol, "simulator rejected %s: %s", req.Cmd, r.resp.Error)
		}

		return r.resp, nil
	case <-ctx.Done():
	}

	timer := time.NewTimer(CancelGrace)
	defer timer.Stop()
	select {
	case r := <-done:
		if r.err == nil {
			return response{}, ctx.Err()
		}
	case <-timer.C:
	}

	s.killed = true
	s.kill()
	return response{}, ctx.Err()
}

// Start implements cfr.Session.
func (s *Session) Start(ctx context.Context) error {
	_, err := s.roundTrip(ctx, request{Cmd: cmdStart, Seed: s.seed})
	return err
}

// Turn implements cfr.Session.
func (s *Session) Turn(ctx context.Context) (cfr.Turn, error) {
	resp, err := s.roundTrip(ctx, request{Cmd: cmdTurn})
	if err != nil {
		return cfr.Turn{}, err
	}

	return decodeTurn(resp), nil
}

// TakeAction implements cfr.Session.
func (s *Session) TakeAction(ctx context.Context, player int, req cfr.Request, action int) error {
	_, err := s.roundTrip(ctx, request{
		Cmd:    cmdAction,
		Player: player,
		Action: action,
		Kind:   req.Kind.String(),
		State:  req.State,
	})
	return err
}

// InfoSet implements cfr.Session.
func (s *Session) InfoSet(ctx context.Context, player int) (cfr.InfoSet, error) {
	resp, err := s.roundTrip(ctx, request{Cmd: cmdInfoSet, Player: player})
	if err != nil {
		return nil, err
	}

	return cfr.InfoSet(resp.InfoSet), nil
}

// Reseed implements cfr.Reseeder.
func (s *Session) Reseed(ctx context.Context, seed int64) error {
	_, err := s.roundTrip(ctx, request{Cmd: cmdReseed, Seed: seed})
	return err
}

// Close implements cfr.Session. It asks the simulator to quit, then
// drains its remaining output and releases the transport.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}

	if !s.killed {
		ctx, cancel := context.WithTimeout(context.Background(), DrainTimeout)
		_, err := s.roundTrip(ctx, request{Cmd: cmdQuit})
		cancel()
		if err != nil {
			glog.V(2).Infof("simproc: quit failed: %v", err)
		}
	}

	s.closed = true
	err := s.shutdown()
	if s.killed {
		// The exit status of a killed simulator carries no information.
		return nil
	}

	return err
}

// Command describes how to launch a simulator process.
type Command struct {
	Path string
	Args []string
	// Env is appended to the environment of the current process.
	Env []string
}

// NewFactory returns a cfr.SessionFactory that launches a new simulator
// process for every session.
func NewFactory(c Command) cfr.SessionFactory {
	return func(seed int64) (cfr.Session, error) {
		return Launch(c, seed)
	}
}

// Launch starts a simulator process and returns a session connected to it.
func Launch(c Command, seed int64) (*Session, error) {
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "starting simulator %s", c.Path)
	}

	kill := func() {
		if err := cmd.Process.Kill(); err != nil {
			glog.Warningf("simproc: killing %s: %v", c.Path, err)
		}
	}

	shutdown := func() error {
		stdin.Close()
		drained := make(chan error, 1)
		go func() {
			if _, err := io.Copy(io.Discard, stdout); err != nil {
				glog.V(2).Infof("simproc: draining %s: %v", c.Path, err)
			}
			drained <- cmd.Wait()
		}()

		select {
		case err := <-drained:
			return errors.Wrapf(err, "waiting for %s", c.Path)
		case <-time.After(DrainTimeout):
			kill()
			<-drained
			return errors.Errorf("simulator %s did not exit within %v", c.Path, DrainTimeout)
		}
	}

	return NewSession(seed, stdout, stdin, shutdown, kill), nil
}
