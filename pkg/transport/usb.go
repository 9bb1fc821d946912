package transport

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/google/gousb"
)

// productString identifies the SDSIO client device among everything
// else enumerated on the bus.
const productString = "SDSIO Client"

const usbPollPeriod = 500 * time.Millisecond

// USBListener discovers a bulk-endpoint USB device by its product
// string, claims its first interface, and hands out one Session per
// physical connection. When the device disappears, Accept blocks
// until a device with the same product string appears again.
type USBListener struct {
	ctx *gousb.Context
}

// NewUSBListener opens a libusb context. Callers should Close the
// listener on shutdown to release it.
func NewUSBListener() *USBListener {
	return &USBListener{ctx: gousb.NewContext()}
}

func (l *USBListener) Close() error {
	return l.ctx.Close()
}

// Accept polls every 500ms for a device whose product string matches
// productString, opens it, claims interface 0, and returns a Session
// wrapping its bulk IN/OUT endpoints.
func (l *USBListener) Accept() (Session, error) {
	for {
		dev, err := l.find()
		if err == nil {
			sess, err := newUSBSession(dev)
			if err != nil {
				dev.Close()
				log.Warnf("usb transport: %v, retrying", err)
				time.Sleep(usbPollPeriod)
				continue
			}
			log.Infof("usb transport: connected to %s", dev.Desc.SerialNumber())
			return sess, nil
		}
		time.Sleep(usbPollPeriod)
	}
}

func (l *USBListener) find() (*gousb.Device, error) {
	devs, err := l.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return true
	})
	for _, d := range devs {
		product, perr := d.Product()
		if perr == nil && product == productString {
			for _, other := range devs {
				if other != d {
					other.Close()
				}
			}
			return d, nil
		}
	}
	for _, d := range devs {
		d.Close()
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("transport: no device named %q found", productString)
}

// usbSession bundles the claimed interface and its bulk endpoints so
// Close releases everything it acquired.
type usbSession struct {
	dev   *gousb.Device
	cfg   *gousb.Config
	iface *gousb.Interface
	in    *gousb.InEndpoint
	out   *gousb.OutEndpoint
}

func newUSBSession(dev *gousb.Device) (*usbSession, error) {
	if err := dev.SetAutoDetach(true); err != nil {
		return nil, fmt.Errorf("set auto detach: %w", err)
	}

	cfg, err := dev.Config(1)
	if err != nil {
		return nil, fmt.Errorf("claim config: %w", err)
	}
	iface, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		return nil, fmt.Errorf("claim interface 0: %w", err)
	}

	var in *gousb.InEndpoint
	var out *gousb.OutEndpoint
	for _, epDesc := range iface.Setting.Endpoints {
		if epDesc.TransferType != gousb.TransferTypeBulk {
			continue
		}
		if epDesc.Direction == gousb.EndpointDirectionIn {
			in, err = iface.InEndpoint(epDesc.Number)
		} else {
			out, err = iface.OutEndpoint(epDesc.Number)
		}
		if err != nil {
			break
		}
	}
	if err != nil || in == nil || out == nil {
		iface.Close()
		cfg.Close()
		return nil, fmt.Errorf("discover bulk endpoints: %w", err)
	}

	return &usbSession{dev: dev, cfg: cfg, iface: iface, in: in, out: out}, nil
}

func (s *usbSession) Read(p []byte) (int, error) {
	return s.in.Read(p)
}

func (s *usbSession) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s *usbSession) Close() error {
	s.iface.Close()
	s.cfg.Close()
	return s.dev.Close()
}
