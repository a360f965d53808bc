package snmp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

// Config describes how cameras are queried over SNMP.
type Config struct {
	Community string
	Version   string // "2c" (default) | "1"
	Port      uint16
	Timeout   time.Duration
	Retries   int
}

// Target represents a camera that can be queried via SNMP.
type Target struct {
	Address string
}

type SystemInfo struct {
	SysName     *string
	SysDescr    *string
	SysLocation *string
	UptimeTicks *uint32
}

// Client wraps a minimal SNMPv1/v2c implementation.
type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	if strings.TrimSpace(cfg.Community) == "" {
		cfg.Community = "public"
	}
	if strings.TrimSpace(cfg.Version) == "" {
		cfg.Version = "2c"
	}
	if cfg.Port == 0 {
		cfg.Port = 161
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 900 * time.Millisecond
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Client{cfg: cfg}
}

func (c *Client) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

func parseVersion(v string) (gosnmp.SnmpVersion, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "2c", "v2c", "":
		return gosnmp.Version2c, nil
	case "1", "v1":
		return gosnmp.Version1, nil
	default:
		return 0, fmt.Errorf("unsupported snmp version %q", v)
	}
}

func (c *Client) connect(ctx context.Context, target Target) (*gosnmp.GoSNMP, error) {
	version, err := parseVersion(c.cfg.Version)
	if err != nil {
		return nil, err
	}

	s := &gosnmp.GoSNMP{
		Context:   ctx,
		Target:    target.Address,
		Port:      c.cfg.Port,
		Community: c.cfg.Community,
		Version:   version,
		Timeout:   c.cfg.Timeout,
		Retries:   c.cfg.Retries,
	}
	if err := s.Connect(); err != nil {
		return nil, err
	}
	return s, nil
}

const (
	oidSysDescr0    = "1.3.6.1.2.1.1.1.0"
	oidSysUpTime0   = "1.3.6.1.2.1.1.3.0"
	oidSysName0     = "1.3.6.1.2.1.1.5.0"
	oidSysLocation0 = "1.3.6.1.2.1.1.6.0"
)

func pduString(pdu gosnmp.SnmpPDU) (*string, bool) {
	switch v := pdu.Value.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, true
		}
		return &s, true
	case []byte:
		s := strings.TrimSpace(string(v))
		if s == "" {
			return nil, true
		}
		return &s, true
	default:
		return nil, false
	}
}

func pduTicks(pdu gosnmp.SnmpPDU) (*uint32, bool) {
	switch v := pdu.Value.(type) {
	case uint32:
		n := v
		return &n, true
	case uint:
		n := uint32(v)
		return &n, true
	case int:
		n := uint32(v)
		return &n, true
	default:
		return nil, false
	}
}

// GetSystem fetches the system group. Any error (including an unanswered
// request) means the device did not respond over SNMP.
func (c *Client) GetSystem(ctx context.Context, target Target) (SystemInfo, error) {
	if c == nil {
		return SystemInfo{}, errors.New("snmp client is nil")
	}

	s, err := c.connect(ctx, target)
	if err != nil {
		return SystemInfo{}, err
	}
	defer s.Conn.Close()

	pkt, err := s.Get([]string{oidSysName0, oidSysDescr0, oidSysUpTime0, oidSysLocation0})
	if err != nil {
		return SystemInfo{}, err
	}
	if pkt.Error != gosnmp.NoError {
		return SystemInfo{}, fmt.Errorf("snmp get %s: %v", target.Address, pkt.Error)
	}

	var out SystemInfo
	for _, v := range pkt.Variables {
		switch v.Name {
		case oidSysName0, "." + oidSysName0:
			out.SysName, _ = pduString(v)
		case oidSysDescr0, "." + oidSysDescr0:
			out.SysDescr, _ = pduString(v)
		case oidSysLocation0, "." + oidSysLocation0:
			out.SysLocation, _ = pduString(v)
		case oidSysUpTime0, "." + oidSysUpTime0:
			out.UptimeTicks, _ = pduTicks(v)
		}
	}
	return out, nil
}
