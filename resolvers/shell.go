package resolvers

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/dnsscience/dnscodec/internal/resolverfw"
	"github.com/dnsscience/dnscodec/internal/wire"
	"github.com/dnsscience/dnscodec/internal/zonefmt"
)

// Shell answers each query by running an external command and parsing
// its stdout as zone-file text. The command is invoked once per query,
// in its own process.
type Shell struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// NewShell creates a Shell resolver invoking command with args, followed
// by "<qname> <qtype>" appended for the query being answered.
func NewShell(command string, args ...string) *Shell {
	return &Shell{Command: command, Args: args, Timeout: 5 * time.Second}
}

// Resolve implements resolverfw.ResolveFunc.
func (s *Shell) Resolve(ctx context.Context, req *wire.Record, _ resolverfw.Handler) (*wire.Record, error) {
	resp := req.Reply()
	resp.Header.AA = true

	q := req.Question[0]
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	args := append(append([]string(nil), s.Args...), q.Name.String(), wire.RRTypes.NameOf(q.Type))
	cmd := exec.CommandContext(ctx, s.Command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && isNXDomainExit(exitErr) {
			resp.Header.Rcode = wire.RcodeNXDomain
			return resp, nil
		}
		return nil, fmt.Errorf("%w: shell resolver command failed: %v: %s", wire.ErrDNS, err, stderr.String())
	}

	rrs, err := zonefmt.ParseZone(&stdout, q.Name, 300)
	if err != nil {
		return nil, fmt.Errorf("%w: shell resolver output: %v", wire.ErrDNS, err)
	}
	resp.Answer = rrs
	if len(rrs) == 0 {
		resp.Header.Rcode = wire.RcodeNXDomain
	}
	return resp, nil
}

// isNXDomainExit reports whether the command signaled "no such name" via
// exit code 1, the convention this resolver expects from its scripts.
func isNXDomainExit(err *exec.ExitError) bool {
	return err.ExitCode() == 1
}
