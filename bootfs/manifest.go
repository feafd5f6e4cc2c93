package bootfs

import (
	"strings"
	"unicode/utf8"

	"rustcore-go/kernelerrors"
)

const manifestEntryName = "services.manifest"

// ManifestSummary is the result of validating a bootfs's service manifest
// (spec.md §3, §4.H).
type ManifestSummary struct {
	ServiceCount uint32
	Error        *kernelerrors.KernelError
}

func manifestError(err *kernelerrors.KernelError) ManifestSummary {
	return ManifestSummary{Error: err}
}

// ServiceDescriptor is one parsed manifest line:
// service:<name>:<artifact>:<entry>[:<cap1,cap2,...>].
type ServiceDescriptor struct {
	Name         string
	Artifact     string
	Entry        string
	Capabilities []string
}

// ValidateManifest locates the services.manifest entry, decodes it as
// UTF-8, and parses each non-empty, non-comment line, per spec.md §4.H's
// manifest rules.
func (v View) ValidateManifest() ManifestSummary {
	raw, ok := v.FindEntry(manifestEntryName)
	if !ok {
		return manifestError(kernelerrors.ErrMissingManifest)
	}

	if !isValidUTF8(raw) {
		return manifestError(kernelerrors.ErrUtf8)
	}
	text := string(raw)

	var serviceCount uint32
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		desc, err := parseServiceLine(line)
		if err != nil {
			return manifestError(err)
		}

		if _, found := v.FindEntry(desc.Artifact); !found {
			return manifestError(kernelerrors.ErrMissingArtifact)
		}

		if serviceCount < ^uint32(0) {
			serviceCount++
		}
	}

	if serviceCount == 0 {
		return manifestError(kernelerrors.ErrManifestEmpty)
	}

	return ManifestSummary{ServiceCount: serviceCount}
}

func isValidUTF8(b []byte) bool {
	return utf8.Valid(b)
}

func parseServiceLine(line string) (ServiceDescriptor, *kernelerrors.KernelError) {
	rest, ok := strings.CutPrefix(line, "service:")
	if !ok {
		return ServiceDescriptor{}, kernelerrors.ErrInvalidFormat
	}

	fields := strings.Split(rest, ":")
	if len(fields) < 3 || len(fields) > 4 {
		return ServiceDescriptor{}, kernelerrors.ErrInvalidFormat
	}

	name := strings.TrimSpace(fields[0])
	artifact := strings.TrimSpace(fields[1])
	entry := strings.TrimSpace(fields[2])
	if name == "" || artifact == "" || entry == "" {
		return ServiceDescriptor{}, kernelerrors.ErrInvalidFormat
	}

	var caps []string
	if len(fields) == 4 {
		for _, c := range strings.Split(fields[3], ",") {
			c = strings.TrimSpace(c)
			if c != "" {
				caps = append(caps, c)
			}
		}
	}

	return ServiceDescriptor{Name: name, Artifact: artifact, Entry: entry, Capabilities: caps}, nil
}
