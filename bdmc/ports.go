package bdmc

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// PortInfo describes a serial device found on the host.
type PortInfo struct {
	Path      string
	Name      string
	VendorID  uint16
	ProductID uint16
	USB       bool
}

// Scanner discovers serial devices through sysfs. The roots are overridable
// so discovery can run against a fixture tree.
type Scanner struct {
	SysRoot string
	DevRoot string
}

// DefaultScanner reads the live /sys and /dev trees.
var DefaultScanner = Scanner{SysRoot: "/sys", DevRoot: "/dev"}

var devPatterns = []string{"ttyUSB*", "ttyACM*", "ttyAMA*", "ttyS*"}

// SerialPorts lists the tty devices under the device root, sorted by path.
func (s Scanner) SerialPorts() ([]PortInfo, error) {
	var ports []PortInfo
	for _, pat := range devPatterns {
		matches, err := filepath.Glob(filepath.Join(s.DevRoot, pat))
		if err != nil {
			return nil, err
		}
		for _, path := range matches {
			name := filepath.Base(path)
			info := PortInfo{Path: path, Name: name}
			info.VendorID, info.ProductID, info.USB = s.usbIDs(name)
			ports = append(ports, info)
		}
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Path < ports[j].Path })
	return ports, nil
}

// FindUSBTTY returns the USB serial devices matching vendor and product.
// A zero id matches any value.
func (s Scanner) FindUSBTTY(vendor, product uint16) ([]PortInfo, error) {
	ports, err := s.SerialPorts()
	if err != nil {
		return nil, err
	}
	var out []PortInfo
	for _, p := range ports {
		if !p.USB {
			continue
		}
		if vendor != 0 && p.VendorID != vendor {
			continue
		}
		if product != 0 && p.ProductID != product {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// usbIDs walks up from the tty's device node to the USB device that carries
// idVendor and idProduct.
func (s Scanner) usbIDs(name string) (vendor, product uint16, ok bool) {
	dev, err := filepath.EvalSymlinks(filepath.Join(s.SysRoot, "class", "tty", name, "device"))
	if err != nil {
		return 0, 0, false
	}
	root, err := filepath.EvalSymlinks(s.SysRoot)
	if err != nil {
		return 0, 0, false
	}
	for dir := dev; strings.HasPrefix(dir, root) && dir != root; dir = filepath.Dir(dir) {
		v, verr := readHexID(filepath.Join(dir, "idVendor"))
		p, perr := readHexID(filepath.Join(dir, "idProduct"))
		if verr == nil && perr == nil {
			return v, p, true
		}
	}
	return 0, 0, false
}

func readHexID(path string) (uint16, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 16, 16)
	return uint16(v), err
}

// FindSerialPorts lists serial devices on the host.
func FindSerialPorts() ([]PortInfo, error) { return DefaultScanner.SerialPorts() }

// FindUSBTTY lists USB serial devices on the host matching vendor and product.
func FindUSBTTY(vendor, product uint16) ([]PortInfo, error) {
	return DefaultScanner.FindUSBTTY(vendor, product)
}
