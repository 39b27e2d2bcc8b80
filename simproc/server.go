package simproc

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	cfr "github.com/timpalpant/go-simcfr"
)

// Serve answers requests read from r by driving sessions created with
// newSession, writing one reply per request to w. It returns when r is
// exhausted, a quit request is received, or ctx is cancelled.
//
// Session errors are reported to the client and do not stop the server.
func Serve(ctx context.Context, r io.Reader, w io.Writer, newSession cfr.SessionFactory) error {
	dec := json.NewDecoder(bufio.NewReader(r))
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	var s cfr.Session
	defer func() {
		if s != nil {
			s.Close()
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var req request
		if err := dec.Decode(&req); err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrap(err, "decoding request")
		}

		glog.V(3).Infof("simproc: request %+v", req)
		resp, err := handle(ctx, &s, req, newSession)
		if err != nil {
			resp = response{Error: err.Error()}
		}

		if err := enc.Encode(resp); err != nil {
			return errors.Wrap(err, "encoding response")
		}

		if err := bw.Flush(); err != nil {
			return errors.Wrap(err, "writing response")
		}

		if req.Cmd == cmdQuit {
			return nil
		}
	}
}

func handle(ctx context.Context, s *cfr.Session, req request, newSession cfr.SessionFactory) (response, error) {
	if req.Cmd == cmdStart {
		if *s != nil {
			(*s).Close()
			*s = nil
		}

		session, err := newSession(req.Seed)
		if err != nil {
			return response{}, err
		}

		*s = session
		return response{}, session.Start(ctx)
	}

	if req.Cmd == cmdQuit {
		return response{}, nil
	}

	if *s == nil {
		return response{}, errors.Errorf("%s before start", req.Cmd)
	}

	switch req.Cmd {
	case cmdTurn:
		turn, err := (*s).Turn(ctx)
		return encodeTurn(turn), err
	case cmdAction:
		r := cfr.Request{Kind: parseKind(req.Kind), State: req.State}
		return response{}, (*s).TakeAction(ctx, req.Player, r, req.Action)
	case cmdInfoSet:
		is, err := (*s).InfoSet(ctx, req.Player)
		return response{Player: req.Player, InfoSet: is}, err
	case cmdReseed:
		rs, ok := (*s).(cfr.Reseeder)
		if !ok {
			return response{}, errors.New("session does not support reseeding")
		}

		return response{}, rs.Reseed(ctx, req.Seed)
	}

	return response{}, errors.Errorf("unknown command %q", req.Cmd)
}
