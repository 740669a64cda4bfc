package router

import "strings"

// destructivePrefixes names the verb families a tool's unqualified name is
// checked against to decide whether it mutates or destroys state on its
// upstream. Unlike the teacher's fixed Kubernetes/Helm/Flux tool-name list,
// an aggregator that fronts arbitrary MCP servers can't enumerate every
// destructive tool up front, so the check is prefix-based over the verb a
// well-behaved tool name leads with.
var destructivePrefixes = []string{
	"delete_",
	"remove_",
	"drop_",
	"destroy_",
	"terminate_",
	"purge_",
	"kill_",
	"uninstall_",
	"reset_",
	"wipe_",
	"apply_",
	"create_",
	"update_",
	"patch_",
	"scale_",
	"upgrade_",
	"rollback_",
	"suspend_",
	"resume_",
}

// Denylist blocks destructive tool calls unless explicitly bypassed, the
// config-driven analogue of the teacher's hardcoded destructiveTools map
// (spec's supplemented "denylist of destructive tools" feature). Extra names
// widen the prefix check for tools whose name doesn't carry a recognized
// verb prefix (e.g. "cleanup").
type Denylist struct {
	Yolo  bool
	Extra map[string]bool
}

// NewDenylist builds an enabled denylist; set Yolo to true to disable the
// check entirely (--yolo).
func NewDenylist(extra []string) *Denylist {
	set := make(map[string]bool, len(extra))
	for _, name := range extra {
		set[name] = true
	}
	return &Denylist{Extra: set}
}

// Blocks reports whether calling toolName should be refused. Always false
// when Yolo is set.
func (d *Denylist) Blocks(toolName string) bool {
	if d == nil || d.Yolo {
		return false
	}
	if d.Extra[toolName] {
		return true
	}
	for _, prefix := range destructivePrefixes {
		if strings.HasPrefix(toolName, prefix) {
			return true
		}
	}
	return false
}
