// SPDX-License-Identifier: MPL-2.0

package stack

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"text/template"
)

// The configuration documents are opaque text artifacts produced by template
// filling; podstrap only decides where they land and with which parameters.

var containersConfTemplate = template.Must(template.New("containers.conf").Parse(`# Generated by podstrap. Edits survive until the next install run.
[containers]
default_subnet = "{{ .Subnet }}"

[engine]
runtime = "{{ .Runtime }}"
conmon_path = ["{{ .ConmonPath }}"]
helper_binaries_dir = ["{{ .BinDir }}"]

[engine.runtimes]
{{ .Runtime }} = ["{{ .RuntimePath }}"]

[network]
default_rootless_network_cmd = "slirp4netns"
`))

var registriesConfTemplate = template.Must(template.New("registries.conf").Parse(`# Generated by podstrap.
unqualified-search-registries = [{{ .RegistryList }}]

[[registry]]
prefix = "docker.io"
location = "docker.io"
`))

var storageConfTemplate = template.Must(template.New("storage.conf").Parse(`# Generated by podstrap.
[storage]
driver = "overlay"
graphroot = "{{ .GraphRoot }}"
runroot = "/run/user/{{ .UID }}/containers"
`))

var socketUnitTemplate = template.Must(template.New("podman.socket").Parse(`[Unit]
Description=Podman API Socket

[Socket]
ListenStream=%t/podman/podman.sock
SocketMode=0660

[Install]
WantedBy=sockets.target
`))

var serviceUnitTemplate = template.Must(template.New("podman.service").Parse(`[Unit]
Description=Podman API Service
Requires=podman.socket
After=podman.socket

[Service]
Type=exec
ExecStart={{ .PodmanPath }} system service --time=0

[Install]
WantedBy=default.target
`))

// configDocuments returns the home-relative path and rendered content of
// every configuration document the install writes.
func (s *Stack) configDocuments() (map[string][]byte, error) {
	id := s.priv.Identity()

	binDir, err := s.priv.HomePath(s.set.BinDir)
	if err != nil {
		return nil, err
	}

	registryList := ""
	for i, r := range s.set.Registries {
		if i > 0 {
			registryList += ", "
		}
		registryList += fmt.Sprintf("%q", r)
	}

	docs := map[string]struct {
		tmpl *template.Template
		data any
	}{
		filepath.Join(containersConfFragment, "containers.conf"): {
			tmpl: containersConfTemplate,
			data: struct {
				Runtime, RuntimePath, ConmonPath, BinDir, Subnet string
			}{
				Runtime:     s.opts.Runtime,
				RuntimePath: filepath.Join(binDir, s.opts.Runtime),
				ConmonPath:  filepath.Join(binDir, "conmon"),
				BinDir:      binDir,
				Subnet:      s.opts.Subnet,
			},
		},
		filepath.Join(containersConfFragment, "registries.conf"): {
			tmpl: registriesConfTemplate,
			data: struct{ RegistryList string }{registryList},
		},
		filepath.Join(containersConfFragment, "storage.conf"): {
			tmpl: storageConfTemplate,
			data: struct {
				GraphRoot string
				UID       int
			}{
				GraphRoot: filepath.Join(id.Home, storageFragment, "storage"),
				UID:       id.UID,
			},
		},
		filepath.Join(systemdUserFragment, "podman.socket"): {
			tmpl: socketUnitTemplate,
			data: nil,
		},
		filepath.Join(systemdUserFragment, "podman.service"): {
			tmpl: serviceUnitTemplate,
			data: struct{ PodmanPath string }{filepath.Join(binDir, "podman")},
		},
	}

	out := make(map[string][]byte, len(docs))
	for fragment, doc := range docs {
		var buf bytes.Buffer
		if err := doc.tmpl.Execute(&buf, doc.data); err != nil {
			return nil, fmt.Errorf("render %s: %w", fragment, err)
		}
		out[fragment] = buf.Bytes()
	}
	return out, nil
}

// writeConfigDocuments renders and installs every document. Overwriting an
// existing document with identical content is the idempotent no-op case.
func (s *Stack) writeConfigDocuments(ctx context.Context) error {
	docs, err := s.configDocuments()
	if err != nil {
		return err
	}
	for fragment, content := range docs {
		if err := s.priv.InstallFile(ctx, fragment, content, "0644"); err != nil {
			return err
		}
	}
	return nil
}

// configFragments lists the document paths for the uninstall mirror.
func configFragments() []string {
	return []string{
		filepath.Join(containersConfFragment, "containers.conf"),
		filepath.Join(containersConfFragment, "registries.conf"),
		filepath.Join(containersConfFragment, "storage.conf"),
		filepath.Join(systemdUserFragment, "podman.socket"),
		filepath.Join(systemdUserFragment, "podman.service"),
	}
}
