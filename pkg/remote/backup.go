package remote

import (
	"fmt"
	"strings"

	"github.com/poolherd/poolherd/pkg/util"
)

// backupDepth is how many rotated snapshots are kept besides the immutable
// config.json.orig.
const backupDepth = 5

// prepareBackup preserves the current remote config before a write.
//
// The backup directory must exist or be creatable — that failure is fatal
// for the host. Everything after that (the write-once config.json.orig copy
// and the numbered FIFO rotation) is best-effort protective redundancy: its
// failure comes back as a warning string and never blocks the config write.
func prepareBackup(sess session, configPath, backupDir string) (fatal error, warning string) {
	if _, err := sess.output("mkdir -p " + shellQuote(backupDir)); err != nil {
		return fmt.Errorf("%w: create backup dir: %v", util.ErrBackup, err), ""
	}

	if _, err := sess.output(rotationScript(configPath, backupDir)); err != nil {
		return nil, err.Error()
	}
	return nil, ""
}

// rotationScript builds the shell script that captures config.json.orig
// exactly once, shifts config.json.1..4 up by one (evicting .5, oldest
// first), and snapshots the current config as config.json.1.
func rotationScript(configPath, backupDir string) string {
	cfg := shellQuote(configPath)
	var b strings.Builder
	b.WriteString("set -e\n")
	b.WriteString("cd " + shellQuote(backupDir) + "\n")
	b.WriteString("if [ ! -f config.json.orig ]; then cp " + cfg + " config.json.orig; fi\n")
	b.WriteString(fmt.Sprintf("rm -f config.json.%d\n", backupDepth))
	for i := backupDepth - 1; i >= 1; i-- {
		b.WriteString(fmt.Sprintf("if [ -f config.json.%d ]; then mv config.json.%d config.json.%d; fi\n", i, i, i+1))
	}
	b.WriteString("cp " + cfg + " config.json.1\n")
	return b.String()
}
