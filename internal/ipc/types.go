package ipc

// Command names understood by the daemon.
const (
	CmdObjectsList    = "objects.list"
	CmdObjectDump     = "object.dump"
	CmdObjectTransact = "object.transact"
)

// Message is a minimal command payload sent from CLI to daemon.
type Message struct {
	Name    string
	Object  string
	Args    []string
	Code    int32
	Payload []byte
}

// ObjectInfo describes one hosted object.
type ObjectInfo struct {
	Name       string
	Descriptor string
	Alive      bool
	Remote     bool
	Served     int32
}

// Response is a minimal daemon reply. Status carries the binder status of
// a failed dump or transaction; Output holds dump text even on failure.
type Response struct {
	OK      bool
	Msg     string
	Status  int32
	Output  string
	Payload []byte
	Objects []ObjectInfo
}
