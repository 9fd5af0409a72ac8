package codec

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gopxl/beep"
	"github.com/milk9111/assetman/asset"
)

type enemySpec struct {
	Name      string  `yaml:"name" toml:"name" json:"name"`
	MoveSpeed float64 `yaml:"move_speed" toml:"move_speed" json:"move_speed"`
	Health    int     `yaml:"health" toml:"health" json:"health"`
}

func TestMarkupDecode(t *testing.T) {
	cases := []struct {
		name string
		file string
		data string
	}{
		{"yaml", "enemy.yaml", "name: slime\nmove_speed: 1.5\nhealth: 3\n"},
		{"yml", "enemy.YML", "name: slime\nmove_speed: 1.5\nhealth: 3\n"},
		{"toml", "enemy.toml", "name = \"slime\"\nmove_speed = 1.5\nhealth = 3\n"},
		{"json", "enemy.json", `{"name":"slime","move_speed":1.5,"health":3}`},
	}
	want := enemySpec{Name: "slime", MoveSpeed: 1.5, Health: 3}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Markup[enemySpec]{}.Decode(c.file, []byte(c.data))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != want {
				t.Fatalf("got %+v, want %+v", got, want)
			}
			out, err := Markup[enemySpec]{}.Encode(c.file, got)
			if err != nil || len(out) == 0 {
				t.Fatalf("encode: %v", err)
			}
		})
	}
}

func TestMarkupErrors(t *testing.T) {
	var ce *asset.CodecError
	if _, err := (Markup[enemySpec]{}).Decode("enemy.ini", nil); !errors.As(err, &ce) || ce.Op != "decode" {
		t.Fatalf("expected decode CodecError, got %v", err)
	}
	if _, err := (Markup[enemySpec]{}).Decode("enemy.yaml", []byte("name: [")); !errors.As(err, &ce) {
		t.Fatalf("expected CodecError for bad yaml, got %v", err)
	}
	if _, err := (Markup[enemySpec]{}).Encode("enemy.txt", enemySpec{}); !errors.As(err, &ce) || ce.Op != "encode" {
		t.Fatalf("expected encode CodecError, got %v", err)
	}
}

func TestImageCodec(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 3))
	src.Set(1, 1, color.RGBA{R: 255, A: 255})

	for _, name := range []string{"tile.png", "tile.bmp"} {
		t.Run(name, func(t *testing.T) {
			data, err := Image{}.Encode(name, src)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			img, err := Image{}.Decode(name, data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if img.Bounds() != src.Bounds() {
				t.Fatalf("bounds %v, want %v", img.Bounds(), src.Bounds())
			}
			r, _, _, a := img.At(1, 1).RGBA()
			if r>>8 != 255 || a>>8 != 255 {
				t.Fatalf("pixel lost: r=%d a=%d", r>>8, a>>8)
			}
		})
	}

	if _, err := (Image{}).Decode("x.png", []byte("nope")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestScriptCodec(t *testing.T) {
	s, err := ScriptCodec{}.Decode("ai/idle.tengo", []byte(`
initial_state := "patrol"
speed := 2 * 3
`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !s.Defines("initial_state") {
		t.Fatalf("global not defined")
	}
	c, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := c.Get("speed").Int(); got != 6 {
		t.Fatalf("speed = %d", got)
	}
	if got := c.Get("initial_state").String(); got != "patrol" {
		t.Fatalf("initial_state = %q", got)
	}

	src, err := ScriptCodec{}.Encode("ai/idle.tengo", s)
	if err != nil || string(src) != string(s.Source) {
		t.Fatalf("encode returned %q %v", src, err)
	}

	if _, err := (ScriptCodec{}).Decode("bad.tengo", []byte("x := ")); err == nil {
		t.Fatalf("expected compile error")
	}
	if _, err := (ScriptCodec{Modules: []string{}}).Decode("os.tengo", []byte(`os := import("os")`)); err == nil {
		t.Fatalf("expected import to be rejected")
	}
}

func TestSoundCodec(t *testing.T) {
	format := beep.Format{SampleRate: 22050, NumChannels: 2, Precision: 2}
	buf := beep.NewBuffer(format)
	buf.Append(beep.Silence(2205))
	clip := &Sound{Format: format, Buffer: buf}

	data, err := SoundCodec{}.Encode("hit.wav", clip)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := SoundCodec{}.Decode("hit.wav", data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Len() != 2205 {
		t.Fatalf("decoded %d samples", got.Len())
	}
	if got.Format.SampleRate != 22050 {
		t.Fatalf("sample rate %d", got.Format.SampleRate)
	}
	if d := got.Duration().Milliseconds(); d != 100 {
		t.Fatalf("duration %dms", d)
	}

	if _, err := (SoundCodec{}).Decode("music.ogg", data); !errors.Is(err, asset.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestBytesCopies(t *testing.T) {
	in := []byte("abc")
	out, _ := Bytes{}.Decode("x", in)
	in[0] = 'z'
	if string(out) != "abc" {
		t.Fatalf("decode aliased input")
	}
	if Ext("dir/Hero.PNG") != "png" || Ext("noext") != "" {
		t.Fatalf("unexpected Ext results")
	}
}
