package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/rbright/casl/internal/config"
	"github.com/rbright/casl/internal/protocol"
)

// StdIODispatcher exchanges one line request/response with a spawned process.
type StdIODispatcher struct {
	argv      []string
	timeoutMS int
	exec      Executor
	logger    *slog.Logger
}

func (d *StdIODispatcher) Dispatch(ctx context.Context, text string) {
	ctx = context.WithoutCancel(ctx)
	log := invocation(d.logger, config.CommandStdIO).With("command", d.argv[0])

	go func() {
		resp, err := d.exchange(ctx, log, text)
		if err != nil {
			log.Error("stdio command failed", "error", err.Error())
			return
		}
		act(ctx, log, d.exec, resp)
	}()
}

func (d *StdIODispatcher) exchange(ctx context.Context, log *slog.Logger, text string) (protocol.Response, error) {
	cancel := context.CancelFunc(func() {})
	if d.timeoutMS > 0 {
		ctx, cancel = context.WithTimeout(ctx, time.Duration(d.timeoutMS)*time.Millisecond)
	}

	cmd := exec.CommandContext(ctx, d.argv[0], d.argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return protocol.Response{}, fmt.Errorf("open stdin for %s: %w", d.argv[0], err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return protocol.Response{}, fmt.Errorf("open stdout for %s: %w", d.argv[0], err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return protocol.Response{}, fmt.Errorf("start command %s: %w", d.argv[0], err)
	}

	// stdout must be drained before Wait; the process may keep running.
	reap := func() {
		_, _ = io.Copy(io.Discard, stdout)
		if err := cmd.Wait(); err != nil {
			log.Debug("stdio command exited", "error", err.Error())
		}
		cancel()
	}

	payload, err := protocol.EncodePayload(protocol.Payload{Text: text})
	if err == nil {
		_, err = stdin.Write(payload)
	}
	_ = stdin.Close()
	if err != nil {
		go reap()
		return protocol.Response{}, fmt.Errorf("write payload to %s: %w", d.argv[0], err)
	}

	line, err := bufio.NewReader(stdout).ReadBytes('\n')
	go reap()
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return protocol.Response{}, fmt.Errorf("read response from %s: %w", d.argv[0], err)
	}
	return protocol.DecodeResponse(line)
}
