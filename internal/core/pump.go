package core

import (
	"context"
	"time"

	"sockcat/internal/session"
	"sockcat/util"
)

// maxSendBurst caps consecutive SENDs before the pump checks the peer.
// A full burst moves 64 KiB of local input; an idle local side ends the
// burst after one empty SEND, so the wait between RECEIVEs is about one
// receive wait.
const maxSendBurst = 64

// pump shuttles bytes across a connected session by alternating SEND
// and RECEIVE until either side finishes, the idle limit passes or
// ctx ends.  RECEIVE must be bounded (session.WithReceiveWait) so
// local input is not starved.
type pump struct {
	sess *session.Session

	// idle ends the exchange after this long without traffic (0 = never).
	idle time.Duration

	// stopOnLocalEOF ends the exchange as soon as the local side is
	// done.  Otherwise the pump keeps receiving until the peer closes.
	stopOnLocalEOF bool

	logger *util.Logger
}

func (p *pump) run(ctx context.Context) error {
	localDone := false
	last := time.Now()

	for ctx.Err() == nil {
		if !localDone {
			for i := 0; i < maxSendBurst; i++ {
				res := p.sess.Do(ctx, session.Send)
				if res.Cancelled() {
					return nil
				}
				if res.Err != nil {
					return res.Err
				}
				if res.Bytes > 0 {
					last = time.Now()
				}
				if res.EOF {
					localDone = true
					p.logger.Debug("local input finished")
					break
				}
				if res.Bytes == 0 {
					break
				}
			}
			if localDone && p.stopOnLocalEOF {
				return nil
			}
		}

		res := p.sess.Do(ctx, session.Receive)
		switch {
		case res.Cancelled():
			return nil
		case res.Err != nil:
			return res.Err
		case res.EOF:
			p.logger.Debug("peer closed the connection")
			return nil
		case res.Bytes > 0:
			last = time.Now()
		}

		if p.idle > 0 && time.Since(last) > p.idle {
			p.logger.Verbose("idle for %v, closing", p.idle)
			return nil
		}
	}
	return nil
}
