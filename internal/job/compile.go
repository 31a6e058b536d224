package job

import (
	"fmt"
	"path"
	"strings"
)

const (
	sleepBinary = "/bin/sleep"

	// The client config file the -c flag points at.
	clientConfigName = "client.rb"
)

// CompileCommand builds the shell command line for one job run.
//
// Clause order is fixed:
//  1. sleep for the splay delay
//  2. the client binary
//  3. daemon options, space-joined
//  4. -c <config_directory>/client.rb
//  5. --chef-license accept (opt-in)
//  6. -L <log> (append) or "> <log> 2>&1" (truncate)
//  7. "|| echo ..." fallback when mailto is set, so cron's mail-on-output
//     behavior notifies the recipient on failure
//
// The output is byte-stable for a given (descriptor, delay): whitespace is
// single-space normalized and map/slice inputs are used in declared order.
func CompileCommand(d Descriptor, delay int) string {
	parts := []string{
		fmt.Sprintf("%s %d;", sleepBinary, delay),
		d.BinaryPath,
	}
	parts = append(parts, d.DaemonOptions...)
	parts = append(parts, "-c", path.Join(d.ConfigDirectory, clientConfigName))
	if d.AcceptLicense {
		parts = append(parts, "--chef-license", "accept")
	}

	logPath := path.Join(d.LogDirectory, d.LogFileName)
	if d.AppendLog {
		parts = append(parts, "-L", logPath)
	} else {
		parts = append(parts, ">", logPath, "2>&1")
	}

	if d.MailTo != "" {
		parts = append(parts, "||", fmt.Sprintf("echo %q", failureMessage(d)))
	}

	return joinCommand(parts)
}

// failureMessage is the fixed string the fallback clause emits; it names the
// client binary so the cron mail is self-describing.
func failureMessage(d Descriptor) string {
	return path.Base(d.BinaryPath) + " execution failed"
}

func joinCommand(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Join(strings.Fields(p), " ")
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, " ")
}
