package snapshot

import (
	"encoding/json"
	"fmt"
)

// CleanupEventPrefix prefixes the DOM custom event dispatched on document when
// a script layer is cleared.
const CleanupEventPrefix = "eddy-cleanup-"

// CleanupEventName is the deterministic cleanup event name for a script id.
// Injected code listens for it to undo its own side effects.
func CleanupEventName(scriptID string) string {
	return CleanupEventPrefix + scriptID
}

const wrapTemplate = `(function () {
  var registry = window.__eddyScripts = window.__eddyScripts || {};
  var id = %[1]s;
  if (registry[id]) { return; }
  registry[id] = true;
  document.addEventListener(%[2]s, function () { delete registry[id]; }, { once: true });
  try {
%[3]s
  } catch (err) {
    console.error("eddy script " + id + " failed", err);
    throw err;
  }
})();`

// WrapScript makes code self-contained and idempotent per page lifetime: a
// second execution with the same script id is a no-op until the cleanup
// event for that id fires.
func WrapScript(scriptID, code string) string {
	return fmt.Sprintf(wrapTemplate, jsString(scriptID), jsString(CleanupEventName(scriptID)), code)
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		// json.Marshal on a string cannot fail.
		panic(err)
	}
	return string(b)
}
