package portruntime

// HostObject marks a type as a host-managed resource that the value
// serializer must not walk structurally. The kind string identifies the
// resource class ("buffer", "port", "code-unit") in logs and errors.
type HostObject interface {
	HostObjectKind() string
}

// HostObjectDelegate is consulted by a value serializer whenever a host
// object (a buffer, a port, a code unit) is encountered inside the value
// graph. The delegate records the object and returns the index under which
// the matching deserializer delegate will be asked for it again.
type HostObjectDelegate interface {
	WriteHostObject(obj any) (uint32, error)
}

// HostObjectReader is the deserialization counterpart of
// HostObjectDelegate: it resolves a previously recorded index back into a
// context-bound host object.
type HostObjectReader interface {
	ReadHostObject(index uint32) (any, error)
}
