package factory

// Server defines the read-side web server operations
type Server interface {
	Start()
	Address() string
	Close() error
	IsInterfaceNil() bool
}
