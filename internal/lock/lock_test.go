package lock

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/papapumpkin/fixreg/internal/fixture"
)

func testRegistry(t *testing.T) *fixture.Registry {
	t.Helper()
	reg := fixture.NewRegistry()
	for _, r := range []fixture.Record{
		{Name: "model.glm", Origin: fixture.OriginPlatformExtracted},
		{Name: "flat.glm", Origin: fixture.OriginDerived, DerivedFrom: "model.glm", Transform: "flatten"},
	} {
		if err := reg.Add(r); err != nil {
			t.Fatal(err)
		}
	}
	return reg
}

func TestDigest(t *testing.T) {
	t.Parallel()

	got := Digest([]byte("abc"))
	want := "sha256:ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("Digest = %q, want %q", got, want)
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	src := fixture.MapSource{"model.glm": []byte("m"), "flat.glm": []byte("f")}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	lf, err := Generate(testRegistry(t), src, now)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := &File{
		Version:     Version,
		GeneratedAt: now,
		Entries: []Entry{
			{Name: "model.glm", SHA256: Digest([]byte("m"))},
			{Name: "flat.glm", SHA256: Digest([]byte("f")), DerivedFrom: "model.glm", SourceSHA256: Digest([]byte("m"))},
		},
	}
	if diff := cmp.Diff(want, lf); diff != "" {
		t.Errorf("Generate (-want +got):\n%s", diff)
	}
}

func TestGenerateMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Generate(testRegistry(t), fixture.MapSource{"model.glm": []byte("m")}, time.Now())
	if err == nil || !strings.Contains(err.Error(), "flat.glm") {
		t.Errorf("Generate error = %v, want mention of flat.glm", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	lf := &File{
		Version:     Version,
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Entries:     []Entry{{Name: "model.glm", SHA256: "sha256:00"}},
	}
	if err := Save(fsys, "models/"+DefaultName, lf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(fsys, "models/"+DefaultName)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(lf, got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()

	lf, err := Load(afero.NewMemMapFs(), DefaultName)
	if err != nil || lf != nil {
		t.Errorf("Load missing = (%v, %v), want (nil, nil)", lf, err)
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	base := fixture.MapSource{"model.glm": []byte("m"), "flat.glm": []byte("f")}
	lf, err := Generate(testRegistry(t), base, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		src       fixture.MapSource
		wantNames []string
		wantMsg   string
	}{
		{
			name: "unchanged",
			src:  base,
		},
		{
			name:      "derived file edited",
			src:       fixture.MapSource{"model.glm": []byte("m"), "flat.glm": []byte("f2")},
			wantNames: []string{"flat.glm"},
			wantMsg:   "content changed",
		},
		{
			name:      "source edited",
			src:       fixture.MapSource{"model.glm": []byte("m2"), "flat.glm": []byte("f")},
			wantNames: []string{"model.glm", "flat.glm"},
			wantMsg:   "changed since derivation",
		},
		{
			name: "unreadable files are skipped",
			src:  fixture.MapSource{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			vs := Check(lf, testRegistry(t), tt.src)
			var names []string
			for _, v := range vs {
				if v.Kind != fixture.KindDigestDrift {
					t.Errorf("kind = %s, want digest_drift", v.Kind)
				}
				names = append(names, v.Fixture)
			}
			if diff := cmp.Diff(tt.wantNames, names); diff != "" {
				t.Errorf("drifted fixtures (-want +got):\n%s", diff)
			}
			if tt.wantMsg != "" && !strings.Contains(vs[len(vs)-1].Detail, tt.wantMsg) {
				t.Errorf("detail %q missing %q", vs[len(vs)-1].Detail, tt.wantMsg)
			}
		})
	}
}

func TestCheckUnlockedFixture(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	lf := &File{Version: Version, Entries: []Entry{{Name: "model.glm", SHA256: Digest([]byte("m"))}}}
	vs := Check(lf, reg, fixture.MapSource{"model.glm": []byte("m"), "flat.glm": []byte("f")})
	if len(vs) != 1 || vs[0].Fixture != "flat.glm" || vs[0].Detail != "not present in lock" {
		t.Errorf("violations = %v", vs)
	}
}

func TestCheckNilLock(t *testing.T) {
	t.Parallel()

	if vs := Check(nil, testRegistry(t), fixture.MapSource{}); vs != nil {
		t.Errorf("Check(nil) = %v, want nil", vs)
	}
}
