package filestore

import (
	"github.com/ee-meas/instrgraph/device"
	"github.com/ee-meas/instrgraph/signal"
)

// Rule adapts a file-backed capture into a graph builder array rule: the
// command's buffer is saved under root with saver instead of being skipped.
// configs are the fixed template-field values sent with each capture, and
// monitor, when non-nil, gates each trigger on instrument state.
func Rule(root string, saver Saver, configs map[string]interface{}, monitor *signal.StatusMonitor) device.ArrayRule {
	return device.ArrayRule{
		Configs: configs,
		New: func(cl signal.ControlLayer, cmdName, compName string, ruleConfigs map[string]interface{}) (signal.Readable, error) {
			opts := []SignalOption{WithConfigs(ruleConfigs)}
			if monitor != nil {
				opts = append(opts, WithMonitor(monitor))
			}
			return New(cl, cmdName, compName, root, saver, opts...)
		},
	}
}
