package motion

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// endOfAPI terminates every response from the XPS controller's ASCII
// TCP interface.
const endOfAPI = "EndOfAPI"

// XPSController drives a Newport XPS motion controller over its plain
// ASCII TCP interface. It only sequences vendor API calls; kinematics,
// homing, and in-controller offset handling stay on the controller side.
//
// MoveTo and Zero block until the controller replies, which per the
// vendor contract happens only after the group has settled or faulted.
//
// Not safe for concurrent use: the controller multiplexes one command at
// a time per socket, so calls are serialized with a mutex.
type XPSController struct {
	cfg Config

	mu   sync.Mutex
	conn net.Conn
}

// DialXPS connects to the controller at cfg.Address.
func DialXPS(ctx context.Context, cfg Config) (*XPSController, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("dial XPS controller %s: %w", cfg.Address, err)
	}
	return &XPSController{cfg: cfg, conn: conn}, nil
}

// MoveTo commands an absolute move of one stage, offset by the stage's
// configured logical zero, and blocks until the controller reports settle
// or fault.
func (x *XPSController) MoveTo(ctx context.Context, stage int, position float64) error {
	st, ok := x.cfg.Stage(stage)
	if !ok {
		return &FaultError{Stage: stage, Target: position, Reason: "stage not configured"}
	}
	if (st.Min != 0 || st.Max != 0) && (position < st.Min || position > st.Max) {
		return &FaultError{
			Stage:  stage,
			Target: position,
			Reason: fmt.Sprintf("target outside travel range [%g, %g]", st.Min, st.Max),
		}
	}

	cmd := fmt.Sprintf("GroupMoveAbsolute(%s,%.6f)", st.Name, st.Zero+position)
	if err := x.call(ctx, cmd); err != nil {
		return &FaultError{Stage: stage, Target: position, Reason: "controller fault", Err: err}
	}
	return nil
}

// Zero returns one stage to its configured logical zero.
func (x *XPSController) Zero(ctx context.Context, stage int) error {
	st, ok := x.cfg.Stage(stage)
	if !ok {
		return &FaultError{Stage: stage, Reason: "stage not configured"}
	}
	cmd := fmt.Sprintf("GroupMoveAbsolute(%s,%.6f)", st.Name, st.Zero)
	if err := x.call(ctx, cmd); err != nil {
		return &FaultError{Stage: stage, Target: 0, Reason: "controller fault during zero-return", Err: err}
	}
	return nil
}

func (x *XPSController) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.conn == nil {
		return nil
	}
	err := x.conn.Close()
	x.conn = nil
	return err
}

// call sends one API command and reads the reply up to EndOfAPI.
// Replies have the form "<code>,<api name or message>"; code 0 is success.
func (x *XPSController) call(ctx context.Context, cmd string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.conn == nil {
		return fmt.Errorf("controller connection closed")
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := x.conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("set deadline: %w", err)
		}
	} else {
		// Moves can legitimately take a long time; clear any prior deadline.
		if err := x.conn.SetDeadline(time.Time{}); err != nil {
			return fmt.Errorf("clear deadline: %w", err)
		}
	}

	if _, err := x.conn.Write([]byte(cmd)); err != nil {
		return fmt.Errorf("send %s: %w", cmd, err)
	}

	reply, err := x.readReply()
	if err != nil {
		return fmt.Errorf("read reply to %s: %w", cmd, err)
	}

	code, msg, err := splitReply(reply)
	if err != nil {
		return fmt.Errorf("reply to %s: %w", cmd, err)
	}
	if code != 0 {
		return fmt.Errorf("controller error %d: %s", code, msg)
	}
	return nil
}

func (x *XPSController) readReply() (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1024)
	for {
		n, err := x.conn.Read(buf)
		if n > 0 {
			sb.Write(buf[:n])
			if idx := strings.Index(sb.String(), endOfAPI); idx >= 0 {
				return sb.String()[:idx], nil
			}
		}
		if err != nil {
			return "", err
		}
	}
}

func splitReply(reply string) (int, string, error) {
	reply = strings.TrimSpace(reply)
	codeStr, msg, found := strings.Cut(reply, ",")
	if !found {
		return 0, "", fmt.Errorf("malformed reply %q", reply)
	}
	code, err := strconv.Atoi(strings.TrimSpace(codeStr))
	if err != nil {
		return 0, "", fmt.Errorf("malformed error code in reply %q", reply)
	}
	return code, msg, nil
}
