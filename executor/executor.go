// Package executor provides compute backends the kernel can launch tasks
// onto, implementing the dfk.Executor contract.
package executor

import (
	"errors"
	"fmt"

	"github.com/joeycumines/dfk"
)

// ErrShutdown is returned by Submit once an executor has been shut down.
var ErrShutdown = errors.New("executor: shut down")

// Factory builds an executor from one "executors" section of a config file
// loaded via [dfk.WithConfigFile], for use with [dfk.WithExecutorFactory].
// Only "type: local" is currently recognized; an unrecognized or missing
// type is an error rather than a silent fallback, since a misconfigured
// site should fail kernel construction, not run on the wrong backend.
//
// Recognized section keys:
//
//	type: "local"
//	workers: <int>  // maxWorkers passed to NewLocal; omitted or 0 means unbounded
func Factory(name string, section any) (dfk.Executor, error) {
	m, ok := section.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("executor: site %q: section is not a map", name)
	}

	typ, _ := m["type"].(string)
	switch typ {
	case "local":
		workers := 0
		switch w := m["workers"].(type) {
		case int:
			workers = w
		case float64:
			workers = int(w)
		}
		return NewLocal(workers), nil
	default:
		return nil, fmt.Errorf("executor: site %q: unrecognized type %q", name, typ)
	}
}
