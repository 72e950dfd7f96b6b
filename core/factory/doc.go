// Package factory provides a small generic registry used to instantiate
// pluggable modules (solver backends, result sinks) from configuration.
// A module is selected by a type string and receives its raw settings as a map
// which the factory decodes into a typed struct.
//
// Example usage:
//
//	reg := factory.NewRegistry[solver.Solver]()
//	reg.Register("cbc", func(conf map[string]any) (solver.Solver, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return solver.NewCBC(c.Path), nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "cbc", Conf: map[string]any{"path": "/usr/bin/cbc"}})
package factory
