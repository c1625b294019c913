package devconfig

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/gridosc/internal/device"
	"github.com/nerrad567/gridosc/internal/osc"
)

// Default record values.
const (
	DefaultPrefix = "/monome"
	DefaultHost   = "127.0.0.1"
	DefaultPort   = 8000
)

// Store errors.
var (
	// ErrNotFound is returned by Read when no record exists for the serial.
	ErrNotFound = errors.New("devconfig: no record for device")

	// ErrInvalidSerial is returned for serials that cannot be used as keys.
	ErrInvalidSerial = errors.New("devconfig: invalid device serial")

	// ErrInvalidRecord is returned when a record fails validation.
	ErrInvalidRecord = errors.New("devconfig: invalid record")
)

// Record is the persisted configuration of one device.
type Record struct {
	Prefix     string          `yaml:"prefix"`
	Host       string          `yaml:"host"`
	Port       int             `yaml:"port"`
	ServerPort int             `yaml:"server_port"`
	Rotation   device.Rotation `yaml:"rotation"`
}

// Store reads and writes records by device serial.
type Store interface {
	Read(ctx context.Context, serial string) (Record, error)
	Write(ctx context.Context, serial string, rec Record) error
}

// Defaults returns the record used when nothing is stored for a device.
func Defaults() Record {
	return Record{
		Prefix:   DefaultPrefix,
		Host:     DefaultHost,
		Port:     DefaultPort,
		Rotation: device.Rotate0,
	}
}

// WithDefaults returns r with empty fields replaced by default values.
func (r Record) WithDefaults() Record {
	d := Defaults()
	if r.Prefix = osc.NormalizePrefix(r.Prefix); r.Prefix == "" {
		r.Prefix = d.Prefix
	}
	if strings.TrimSpace(r.Host) == "" {
		r.Host = d.Host
	}
	if r.Port == 0 {
		r.Port = d.Port
	}
	return r
}

// Validate checks ports and rotation.
func (r Record) Validate() error {
	var errs []string

	if r.Port < 1 || r.Port > 65535 {
		errs = append(errs, fmt.Sprintf("port %d out of range", r.Port))
	}
	if r.ServerPort < 0 || r.ServerPort > 65535 {
		errs = append(errs, fmt.Sprintf("server_port %d out of range", r.ServerPort))
	}
	if !r.Rotation.Valid() {
		errs = append(errs, fmt.Sprintf("rotation %d not one of 0, 90, 180, 270", r.Rotation))
	}
	if r.Host == "" {
		errs = append(errs, "host is empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(errs, "; "))
	}
	return nil
}

// validSerial rejects serials that would escape a directory or are empty.
func validSerial(serial string) error {
	if serial == "" || serial == "." || serial == ".." ||
		strings.ContainsAny(serial, `/\`+"\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidSerial, serial)
	}
	return nil
}

// normalize fills defaults then validates, the common read path of every
// backend.
func normalize(r Record) (Record, error) {
	r = r.WithDefaults()
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}
