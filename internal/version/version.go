// Package version holds the daemon build version and the protocol version
// it speaks. cmd/devicectld prints both in its startup banner; neither is
// included in any response or event sent to clients.
package version

import "github.com/blang/semver"

// Current is the daemon build version. Bumped at release time.
var Current = semver.MustParse("1.4.0")

// Protocol is the wire protocol version carried in every Command, Response
// and Event (§6). The ipc package stamps outgoing messages with its own
// ProtocolVersion constant of the same value and does not check the
// version field of incoming commands.
const Protocol = "1.0"
