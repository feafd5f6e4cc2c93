package image

import (
	"testing"

	"rustcore-go/bootfs"
)

func TestWriterRoundTripsThroughBootfsView(t *testing.T) {
	var w Writer
	w.Add("services.manifest", BuildManifest([]ServiceSpec{
		{Name: "foo", Artifact: "foo.bin", Entry: "main"},
	}))
	w.Add("foo.bin", []byte{0xde, 0xad, 0xbe, 0xef})

	data, err := w.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	v := bootfs.NewView(data)
	payload, ok := v.FindEntry("foo.bin")
	if !ok {
		t.Fatal("expected foo.bin entry")
	}
	if string(payload) != "\xde\xad\xbe\xef" {
		t.Errorf("foo.bin payload = %v", payload)
	}

	summary := v.ValidateManifest()
	if summary.Error != nil {
		t.Fatalf("unexpected manifest error: %v", summary.Error)
	}
	if summary.ServiceCount != 1 {
		t.Errorf("ServiceCount = %d, want 1", summary.ServiceCount)
	}
}

func TestBuildManifestWithCapabilities(t *testing.T) {
	got := string(BuildManifest([]ServiceSpec{
		{Name: "net", Artifact: "net.bin", Entry: "main", Capabilities: []string{"irq", "dma"}},
	}))
	want := "service:net:net.bin:main:irq,dma\n"
	if got != want {
		t.Errorf("BuildManifest = %q, want %q", got, want)
	}
}

func TestSortServiceSpecsOrdersByName(t *testing.T) {
	specs := []ServiceSpec{
		{Name: "zeta", Artifact: "z.bin", Entry: "main"},
		{Name: "alpha", Artifact: "a.bin", Entry: "main"},
	}
	SortServiceSpecs(specs)
	if specs[0].Name != "alpha" || specs[1].Name != "zeta" {
		t.Errorf("unexpected order: %+v", specs)
	}
}

func TestSyntheticMemoryMapCoversUsableBytes(t *testing.T) {
	regions := SyntheticMemoryMap(512 * 1024)
	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}
	if regions[0].Length != 512*1024 {
		t.Errorf("Length = %d, want %d", regions[0].Length, 512*1024)
	}
}
