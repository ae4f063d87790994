package distro

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func fakeRunner(outputs map[string]string, err error) RunFunc {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if err != nil {
			return nil, err
		}
		out, ok := outputs[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, ErrCommandNotFound)
		}
		return []byte(out), nil
	}
}

func TestParseSeries(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{"single", "noble\n", []string{"noble"}},
		{"lines", "focal\njammy\nnoble\n", []string{"focal", "jammy", "noble"}},
		{"mixed whitespace", "  focal \t jammy\n\nnoble", []string{"focal", "jammy", "noble"}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSeries([]byte(tt.output))
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseSeries(%q) = %v, want %v", tt.output, got, tt.want)
			}
		})
	}
}

func TestCommandDetector(t *testing.T) {
	d := NewCommandDetectorWithRunner(fakeRunner(map[string]string{
		"lsb_release":        "jammy\n",
		"ubuntu-distro-info": "focal\njammy\nnoble\n",
	}, nil))

	ctx := context.Background()
	current, err := d.CurrentSeries(ctx)
	if err != nil {
		t.Fatalf("CurrentSeries failed: %v", err)
	}
	if current != "jammy" {
		t.Errorf("expected jammy, got %s", current)
	}

	supported, err := d.SupportedSeries(ctx)
	if err != nil {
		t.Fatalf("SupportedSeries failed: %v", err)
	}
	if !reflect.DeepEqual(supported, []string{"focal", "jammy", "noble"}) {
		t.Errorf("unexpected supported series: %v", supported)
	}
}

func TestCommandDetectorArguments(t *testing.T) {
	var ran []string
	d := NewCommandDetectorWithRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		ran = append(ran, strings.Join(append([]string{name}, args...), " "))
		return []byte("trusty\nxenial\nbionic\nfocal\njammy\nnoble\n"), nil
	})

	ctx := context.Background()
	if _, err := d.CurrentSeries(ctx); err != nil {
		t.Fatalf("CurrentSeries failed: %v", err)
	}
	supported, err := d.SupportedSeries(ctx)
	if err != nil {
		t.Fatalf("SupportedSeries failed: %v", err)
	}

	want := []string{"lsb_release -cs", "ubuntu-distro-info --supported-esm"}
	if !reflect.DeepEqual(ran, want) {
		t.Errorf("ran %q, want %q", ran, want)
	}
	if len(supported) != 6 || supported[0] != "trusty" {
		t.Errorf("expected ESM series to be kept, got %v", supported)
	}
}

func TestCommandDetectorMissingTooling(t *testing.T) {
	d := NewCommandDetectorWithRunner(fakeRunner(map[string]string{}, nil))

	_, err := d.CurrentSeries(context.Background())
	if !errors.Is(err, ErrCommandNotFound) {
		t.Fatalf("expected ErrCommandNotFound, got %v", err)
	}

	_, err = d.SupportedSeries(context.Background())
	if !errors.Is(err, ErrCommandNotFound) {
		t.Fatalf("expected ErrCommandNotFound, got %v", err)
	}
}

func TestCommandDetectorEmptyOutput(t *testing.T) {
	d := NewCommandDetectorWithRunner(fakeRunner(map[string]string{"lsb_release": "\n"}, nil))

	if _, err := d.CurrentSeries(context.Background()); err == nil {
		t.Fatal("expected error for empty lsb_release output")
	}
}
