package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/poolherd/poolherd/pkg/fleet"
	"github.com/poolherd/poolherd/pkg/miner"
	"github.com/poolherd/poolherd/pkg/util"
)

// Defaults reflecting the Termux miner environment this tool targets.
const (
	DefaultSSHPort        = 8022
	DefaultConnectTimeout = 10 * time.Second
	DefaultConfigPath     = "~/ccminer/config.json"
	DefaultBackupDir      = "~/ccminer/configbackups"
)

// Config holds the run-wide parameters shared read-only by every host.
type Config struct {
	Username string
	Password string
	Port     int

	// ConnectTimeout bounds the SSH dial so one unreachable host cannot
	// stall a pool worker indefinitely.
	ConnectTimeout time.Duration

	ConfigPath string
	BackupDir  string

	// Op is the config mutation for the run, nil when only a switchpool
	// was requested.
	Op miner.Operation

	SwitchPool  bool
	ControlPort int
}

// Driver runs the full single-attempt sequence on one host:
// connect, read, patch, backup, write, switchpool, close.
type Driver struct {
	cfg Config

	// dial is the test seam; nil means real SSH.
	dial func(host string) (session, error)
}

// NewDriver creates a driver, filling zero-valued Config fields with the
// package defaults.
func NewDriver(cfg Config) *Driver {
	if cfg.Port == 0 {
		cfg.Port = DefaultSSHPort
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = DefaultConfigPath
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = DefaultBackupDir
	}
	if cfg.ControlPort == 0 {
		cfg.ControlPort = DefaultControlPort
	}
	return &Driver{cfg: cfg}
}

// RunHost processes one host to completion. Every failure mode is folded
// into the returned result; RunHost never panics and never returns an error
// out-of-band. Satisfies fleet.HostFunc.
func (d *Driver) RunHost(ctx context.Context, host string, index int) fleet.HostResult {
	start := time.Now()
	res := d.runHost(ctx, host, index)
	res.Duration = time.Since(start)
	return res
}

func (d *Driver) runHost(ctx context.Context, host string, index int) fleet.HostResult {
	log := util.WithHost(host)
	res := fleet.HostResult{Host: host, Index: index}

	if err := ctx.Err(); err != nil {
		res.Err = util.NewHostError(host, err)
		return res
	}

	dial := d.dial
	if dial == nil {
		dial = func(h string) (session, error) {
			return dialSSH(h, d.cfg.Port, d.cfg.Username, d.cfg.Password, d.cfg.ConnectTimeout)
		}
	}

	sess, err := dial(host)
	if err != nil {
		res.Err = fmt.Errorf("%w: %v", util.ErrConnect, err)
		return res
	}
	defer sess.close()
	log.Debugf("connected on port %d", d.cfg.Port)

	if d.cfg.Op != nil {
		doc, err := sess.output("cat " + shellQuote(d.cfg.ConfigPath))
		if err != nil {
			res.Err = fmt.Errorf("%w: %v", util.ErrRead, err)
			return res
		}

		patched, err := miner.Patch(doc, d.cfg.Op)
		if err != nil {
			res.Err = err
			return res
		}

		switch {
		case patched.Changed:
			if fatal, warning := prepareBackup(sess, d.cfg.ConfigPath, d.cfg.BackupDir); fatal != nil {
				res.Err = fatal
				return res
			} else if warning != "" {
				log.Warnf("backup rotation failed: %s", warning)
				res.BackupWarning = warning
			}

			if err := d.writeConfig(sess, patched.Doc); err != nil {
				// The remote file state is unknown after a failed write;
				// no switchpool on top of a possibly inconsistent config.
				res.Err = fmt.Errorf("%w: %v", util.ErrWrite, err)
				return res
			}
			res.ConfigChanged = true
			log.Debugf("config updated (%s)", d.cfg.Op.Describe())
		case urlOperation(d.cfg.Op) && patched.Matched == 0:
			// Documented behavior, not an error: a typo'd URL does
			// nothing. The note makes the miss visible to the operator.
			res.Note = "no matching pool url (no change)"
		default:
			res.Note = "no change needed"
		}
	}

	if d.cfg.SwitchPool {
		ok, detail := triggerSwitchPool(sess, d.cfg.ControlPort)
		if ok {
			res.Switch = fleet.SwitchOK
		} else {
			res.Switch = fleet.SwitchFailed
			log.Debugf("switchpool not acknowledged: %s", detail)
		}
		res.SwitchDetail = detail
	}

	res.Success = true
	return res
}

// writeConfig replaces the remote config in one shot: the new document is
// streamed to a temp file and renamed over the original, so the miner never
// sees a half-written config.
func (d *Driver) writeConfig(sess session, doc []byte) error {
	cfg := shellQuote(d.cfg.ConfigPath)
	tmp := shellQuote(d.cfg.ConfigPath + ".tmp")
	cmd := fmt.Sprintf("cat > %s && mv %s %s", tmp, tmp, cfg)
	return sess.runInput(cmd, doc)
}

func urlOperation(op miner.Operation) bool {
	switch op.(type) {
	case miner.EnableURL, miner.DisableURL:
		return true
	}
	return false
}
