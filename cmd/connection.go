// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Thermoquad/tc420ctl/internal/logger"
	"github.com/Thermoquad/tc420ctl/pkg/frametrace"
	"github.com/Thermoquad/tc420ctl/pkg/tc420"
	"github.com/Thermoquad/tc420ctl/pkg/tc420/usbdev"
)

// session is one opened device, and its trace when --trace is set
type session struct {
	dev      *tc420.Device
	info     usbdev.DeviceInfo
	trace    *os.File
	recorder *frametrace.Recorder

	// modeStopNeeded is set by commands that leave the device in a
	// programming or play state; finish sends MODE_STOP for them.
	modeStopNeeded bool
}

// openSession opens the configured device
func openSession() (*session, error) {
	handle, err := usbdev.Open(appConfig.Device.Index)
	if err != nil {
		if errors.Is(err, usbdev.ErrNoDeviceFound) {
			return nil, &exitError{code: 1, err: err}
		}
		return nil, fmt.Errorf("open device: %w", err)
	}

	s := &session{info: handle.Info()}
	var transport tc420.Transport = handle
	if tracePath != "" {
		if s.trace, err = os.Create(tracePath); err != nil {
			handle.Close()
			return nil, fmt.Errorf("create trace: %w", err)
		}
		if s.recorder, err = frametrace.NewRecorder(handle, s.trace, s.info.Path); err != nil {
			s.trace.Close()
			handle.Close()
			return nil, err
		}
		transport = s.recorder
	}

	log := appLog.With(logger.Fields{"module": "tc420", "device": s.info.Path})
	s.dev = tc420.NewDevice(transport,
		tc420.WithTimeout(appConfig.Device.Timeout),
		tc420.WithSettleDelay(appConfig.Device.SettleDelay),
		tc420.WithLogger(log.KV()),
	)
	log.Debugf("opened device #%d at bus %03d address %03d", s.info.Index, s.info.Bus, s.info.Address)
	return s, nil
}

// finish sends the closing MODE_STOP when a command needs one
func (s *session) finish() error {
	if !s.modeStopNeeded {
		return nil
	}
	s.modeStopNeeded = false

	// The command's context may already be cancelled by Ctrl+C.
	ctx, cancel := context.WithTimeout(context.Background(), 2*appConfig.Device.Timeout)
	defer cancel()

	fmt.Print("Finalizing modes... ")
	return checkResult(s.dev.ModeStop(ctx))
}

// Close stops any play session and releases the device and the trace
func (s *session) Close() error {
	err := s.dev.Close()
	if s.recorder != nil {
		if rerr := s.recorder.Err(); rerr != nil {
			appLog.Warnf("trace incomplete: %v", rerr)
		}
		fmt.Fprintf(os.Stderr, "Trace session %s written to %s\n", s.recorder.Session(), tracePath)
	}
	if s.trace != nil {
		if cerr := s.trace.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// checkResult prints the outcome of a device command. A refused command
// exits with code 2.
func checkResult(ok bool, err error) error {
	if err != nil {
		fmt.Println("ERROR!")
		return err
	}
	if !ok {
		fmt.Println("ERROR!")
		return &exitError{code: 2, err: errors.New("device did not acknowledge the command")}
	}
	fmt.Println("OK.")
	return nil
}
