package main

import (
	"bytes"
	"fmt"
	"image/color"
	"sort"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/milk9111/assetman/asset"
	"github.com/milk9111/assetman/codec"
	"go.uber.org/zap"
)

const (
	screenW = 960
	screenH = 540
)

type viewer struct {
	reg      *asset.Registry
	textures []*asset.Handle[*ebiten.Image]
	sounds   []*asset.Handle[*codec.Sound]
	current  int
	audioCtx *audio.Context
	player   *audio.Player
	log      *zap.Logger
}

func newViewer(reg *asset.Registry, log *zap.Logger) *viewer {
	return &viewer{reg: reg, audioCtx: audio.NewContext(44100), log: log}
}

func (v *viewer) addTexture(h *asset.Handle[*ebiten.Image]) {
	v.textures = append(v.textures, h)
	sort.Slice(v.textures, func(i, j int) bool { return v.textures[i].Path() < v.textures[j].Path() })
}

func (v *viewer) addSound(h *asset.Handle[*codec.Sound]) {
	v.sounds = append(v.sounds, h)
}

func (v *viewer) Update() error {
	v.reg.Update()

	if n := len(v.textures); n > 0 {
		if inpututil.IsKeyJustPressed(ebiten.KeyRight) {
			v.current = (v.current + 1) % n
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyLeft) {
			v.current = (v.current + n - 1) % n
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) && len(v.sounds) > 0 {
		v.play(v.sounds[v.current%len(v.sounds)])
	}
	return nil
}

func (v *viewer) play(h *asset.Handle[*codec.Sound]) {
	snd, ok := h.TryValue()
	if !ok {
		return
	}
	data, err := codec.SoundCodec{}.Encode(h.Path(), snd)
	if err != nil {
		v.log.Warn("encode sound", zap.String("path", h.Path()), zap.Error(err))
		return
	}
	stream, err := wav.DecodeWithSampleRate(v.audioCtx.SampleRate(), bytes.NewReader(data))
	if err != nil {
		v.log.Warn("decode sound", zap.String("path", h.Path()), zap.Error(err))
		return
	}
	if v.player != nil {
		_ = v.player.Close()
	}
	v.player, err = v.audioCtx.NewPlayer(stream)
	if err != nil {
		v.log.Warn("play sound", zap.String("path", h.Path()), zap.Error(err))
		return
	}
	v.player.Play()
}

func (v *viewer) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{0x20, 0x20, 0x28, 0xff})
	if len(v.textures) == 0 {
		ebitenutil.DebugPrint(screen, "no textures under the asset root")
		return
	}

	h := v.textures[v.current]
	img := h.Value()
	w, ht := img.Bounds().Dx(), img.Bounds().Dy()
	scale := min(float64(screenW-40)/float64(w), float64(screenH-80)/float64(ht))
	if scale > 8 {
		scale = 8
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate((screenW-float64(w)*scale)/2, (screenH-float64(ht)*scale)/2)
	op.Filter = ebiten.FilterNearest
	screen.DrawImage(img, op)

	status := h.Status().String()
	if err := h.Err(); err != nil {
		status += ": " + err.Error()
	}
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("[%d/%d] %s  %dx%d  %s  refs=%d",
		v.current+1, len(v.textures), h.Path(), w, ht, status, h.Refcount()), 8, 8)

	y := screenH - 16*(len(v.reg.Stats())+1)
	for _, s := range v.reg.Stats() {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s: %d rows, %d pending", s.Type, s.Rows, s.Pending), 8, y)
		y += 16
	}
}

func (v *viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenW, screenH
}

func (v *viewer) release() {
	if v.player != nil {
		_ = v.player.Close()
	}
	for _, h := range v.textures {
		h.Release()
	}
	for _, h := range v.sounds {
		h.Release()
	}
	v.textures, v.sounds = nil, nil
}
