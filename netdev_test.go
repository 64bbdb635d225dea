package atwinc1500

import (
	"errors"
	"net"
	"testing"
	"time"

	"tinygo.org/x/drivers/netdev"
)

func TestNetdevSocketsUnsupported(t *testing.T) {
	d, _ := simDevice(t)
	var errs []error
	_, err := d.GetHostByName("example.com")
	errs = append(errs, err)
	_, err = d.Socket(0, 0, 0)
	errs = append(errs, err)
	errs = append(errs, d.Bind(0, net.IP{}, 80))
	errs = append(errs, d.Listen(0, 1))
	_, err = d.Send(0, nil, 0, time.Time{})
	errs = append(errs, err)
	_, err = d.Recv(0, nil, 0, time.Time{})
	errs = append(errs, err)
	errs = append(errs, d.Close(0))
	for i, err := range errs {
		if !errors.Is(err, netdev.ErrNotSupported) {
			t.Errorf("call %d: got %v, want netdev.ErrNotSupported", i, err)
		}
	}
}

func TestNetFlags(t *testing.T) {
	d, _ := simDevice(t)
	if f := d.NetFlags(); f != 0 {
		t.Errorf("flags %v while disconnected", f)
	}
	d.state.status = StatusConnected
	if f := d.NetFlags(); f != net.FlagUp|net.FlagRunning {
		t.Errorf("flags %v while connected", f)
	}
	d.state.status = StatusApListening
	if f := d.NetFlags(); f != net.FlagUp {
		t.Errorf("flags %v while listening", f)
	}
}
