// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package usbdev finds and opens TC420 controllers on the USB bus.
//
// The TC420 has no serial number, so when several are attached they are
// told apart by their position in the bus topology: matching devices are
// sorted by their bus/port path and selected by index. The index is stable
// as long as nothing is re-plugged.
package usbdev

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/gousb"
)

// USB identification of the TC420
const (
	VendorID  gousb.ID = 0x0888
	ProductID gousb.ID = 0x4000
)

// ErrNoDeviceFound is returned when no TC420 is attached or the requested
// index is out of range.
var ErrNoDeviceFound = errors.New("TC420 device is not found")

// DeviceInfo describes one attached TC420
type DeviceInfo struct {
	Index   int
	Path    string
	Bus     int
	Address int
	Speed   gousb.Speed
}

// Handle is an opened TC420 with its interface claimed. It implements
// tc420.Transport.
type Handle struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	done func()
	in   *gousb.InEndpoint
	out  *gousb.OutEndpoint
	info DeviceInfo
}

// Open opens a TC420. With index < 0 the first device libusb reports is
// used. Otherwise all devices are enumerated, sorted by bus path, and the
// one at index is opened.
func Open(index int) (*Handle, error) {
	ctx := gousb.NewContext()

	dev, info, err := find(ctx, index)
	if err != nil {
		ctx.Close()
		return nil, err
	}

	h, err := claim(ctx, dev, info)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, err
	}
	return h, nil
}

func find(ctx *gousb.Context, index int) (*gousb.Device, DeviceInfo, error) {
	if index < 0 {
		dev, err := ctx.OpenDeviceWithVIDPID(VendorID, ProductID)
		if err != nil {
			return nil, DeviceInfo{}, fmt.Errorf("open device: %w", err)
		}
		if dev == nil {
			return nil, DeviceInfo{}, ErrNoDeviceFound
		}
		return dev, describe(dev.Desc, 0), nil
	}

	devs, err := openAll(ctx)
	if err != nil {
		return nil, DeviceInfo{}, err
	}
	if len(devs) == 0 {
		return nil, DeviceInfo{}, ErrNoDeviceFound
	}
	if index >= len(devs) {
		closeAll(devs)
		return nil, DeviceInfo{}, fmt.Errorf("%w: no device #%d, only %d present", ErrNoDeviceFound, index, len(devs))
	}

	dev := devs[index]
	closeAll(append(devs[:index:index], devs[index+1:]...))
	return dev, describe(dev.Desc, index), nil
}

// openAll opens every matching device, sorted by bus path.
func openAll(ctx *gousb.Context) ([]*gousb.Device, error) {
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == VendorID && desc.Product == ProductID
	})
	if err != nil && len(devs) == 0 {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	sort.SliceStable(devs, func(i, j int) bool {
		return devicePath(devs[i].Desc) < devicePath(devs[j].Desc)
	})
	return devs, nil
}

func closeAll(devs []*gousb.Device) {
	for _, d := range devs {
		d.Close()
	}
}

// List describes all attached TC420s in selection order.
func List() ([]DeviceInfo, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devs, err := openAll(ctx)
	if err != nil {
		return nil, err
	}
	defer closeAll(devs)

	infos := make([]DeviceInfo, len(devs))
	for i, d := range devs {
		infos[i] = describe(d.Desc, i)
	}
	return infos, nil
}

func describe(desc *gousb.DeviceDesc, index int) DeviceInfo {
	return DeviceInfo{
		Index:   index,
		Path:    devicePath(desc),
		Bus:     desc.Bus,
		Address: desc.Address,
		Speed:   desc.Speed,
	}
}

func devicePath(desc *gousb.DeviceDesc) string {
	ports := desc.Path
	if len(ports) == 0 {
		ports = []int{desc.Port}
	}
	return BusPath(desc.Bus, ports)
}

// claim detaches any kernel driver, claims the default interface and
// resolves its bulk endpoints.
func claim(ctx *gousb.Context, dev *gousb.Device, info DeviceInfo) (*Handle, error) {
	// Kernel driver detach is not available on every platform.
	if err := dev.SetAutoDetach(true); err != nil && !errors.Is(err, gousb.ErrorNotSupported) {
		return nil, fmt.Errorf("detach kernel driver: %w", err)
	}

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		return nil, fmt.Errorf("claim interface: %w", err)
	}

	h := &Handle{ctx: ctx, dev: dev, done: done, info: info}
	for _, ep := range intf.Setting.Endpoints {
		switch {
		case ep.Direction == gousb.EndpointDirectionIn && h.in == nil:
			h.in, err = intf.InEndpoint(ep.Number)
		case ep.Direction == gousb.EndpointDirectionOut && h.out == nil:
			h.out, err = intf.OutEndpoint(ep.Number)
		}
		if err != nil {
			done()
			return nil, fmt.Errorf("open endpoint %s: %w", ep, err)
		}
	}
	if h.in == nil || h.out == nil {
		done()
		return nil, fmt.Errorf("interface %s lacks an in/out endpoint pair", intf)
	}
	return h, nil
}

// Info describes the opened device
func (h *Handle) Info() DeviceInfo {
	return h.info
}

// Write writes one frame to the bulk-out endpoint
func (h *Handle) Write(ctx context.Context, p []byte) (int, error) {
	return h.out.WriteContext(ctx, p)
}

// Read reads one frame from the bulk-in endpoint
func (h *Handle) Read(ctx context.Context, p []byte) (int, error) {
	return h.in.ReadContext(ctx, p)
}

// Close releases the interface and closes the device
func (h *Handle) Close() error {
	h.done()
	err := h.dev.Close()
	if cerr := h.ctx.Close(); err == nil {
		err = cerr
	}
	return err
}
