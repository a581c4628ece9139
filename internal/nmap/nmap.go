// Package nmap decodes the Nmap "-oX" XML report format.
package nmap

import (
	"encoding/xml"
	"os"
)

// ReadXML parses an Nmap XML report file written by the port_scan stage.
func ReadXML(path string) (*NmapRun, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var run NmapRun
	if err := xml.NewDecoder(f).Decode(&run); err != nil {
		return nil, err
	}
	return &run, nil
}

// OpenPorts returns every port in the "open" state across all hosts in the run.
func (r *NmapRun) OpenPorts() map[string][]Port {
	out := make(map[string][]Port)
	for _, host := range r.Hosts {
		if host.Status.State != "up" {
			continue
		}
		var addr string
		if len(host.Addresses) > 0 {
			addr = host.Addresses[0].Addr
		}
		for _, p := range host.Ports.Port {
			if p.State.State == "open" {
				out[addr] = append(out[addr], p)
			}
		}
	}
	return out
}
