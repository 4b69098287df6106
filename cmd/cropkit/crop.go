package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/homebuddy/cropkit"
	"github.com/homebuddy/cropkit/internal/config"
	"github.com/homebuddy/cropkit/internal/utils"
	"github.com/homebuddy/cropkit/pkg/codec"
	"github.com/homebuddy/cropkit/pkg/framing"
	"github.com/homebuddy/cropkit/pkg/geometry"
	"github.com/homebuddy/cropkit/pkg/ollama"
)

// cropFlags are shared by crop, batch and rect
type cropFlags struct {
	profile   string
	container string
	offsetX   float64
	offsetY   float64
	scale     float64

	shape  string
	size   float64
	aspect float64
	fill   float64

	format   string
	quality  float64
	maxWidth int
	outDir   string
	frame    string
}

var (
	cropOpts  cropFlags
	batchOpts cropFlags
	rectOpts  cropFlags
	workers   int
	natural   string
)

var cropCmd = &cobra.Command{
	Use:   "crop <image>",
	Short: "Crop one image for a given preview layout and pan/zoom",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCrop(cmd, &cropOpts, args)
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch <image|dir>...",
	Short: "Crop many images with the same layout",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		for _, arg := range args {
			if st, err := os.Stat(arg); err == nil && st.IsDir() {
				found, err := utils.ListImageFiles(arg)
				if err != nil {
					return err
				}
				files = append(files, found...)
				continue
			}
			files = append(files, arg)
		}
		if len(files) == 0 {
			return fmt.Errorf("no images found")
		}
		return runCrop(cmd, &batchOpts, files)
	},
}

var rectCmd = &cobra.Command{
	Use:   "rect [image]",
	Short: "Print the crop rectangle without touching pixels",
	Long: `Print the crop rectangle as JSON. The natural size comes from --natural WxH
or, when an image is given, from its header.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRect,
}

func init() {
	addCropFlags(cropCmd, &cropOpts, true)
	addCropFlags(batchCmd, &batchOpts, true)
	addCropFlags(rectCmd, &rectOpts, false)

	batchCmd.Flags().IntVarP(&workers, "workers", "j", 4, "Number of images cropped concurrently")
	rectCmd.Flags().StringVar(&natural, "natural", "", "Natural image size WxH")
}

func addCropFlags(cmd *cobra.Command, f *cropFlags, encode bool) {
	cmd.Flags().StringVarP(&f.profile, "profile", "p", "", "Crop profile from the config (default: crop.default_profile)")
	cmd.Flags().StringVar(&f.container, "container", "400x400", "Preview container size WxH")
	cmd.Flags().Float64Var(&f.offsetX, "offset-x", 0, "Horizontal pan in container pixels")
	cmd.Flags().Float64Var(&f.offsetY, "offset-y", 0, "Vertical pan in container pixels")
	cmd.Flags().Float64Var(&f.scale, "scale", 1, "Zoom scale, clamped to the profile zoom range")

	cmd.Flags().StringVar(&f.shape, "shape", "", "Override overlay shape: circle|square|rectangle")
	cmd.Flags().Float64Var(&f.size, "size", 0, "Override overlay size for circle/square")
	cmd.Flags().Float64Var(&f.aspect, "aspect", 0, "Override overlay aspect ratio for rectangle")
	cmd.Flags().Float64Var(&f.fill, "fill", 0, "Override rectangle fill fraction")

	if !encode {
		return
	}
	cmd.Flags().StringVar(&f.format, "format", "", "Output format: jpeg|png|webp")
	cmd.Flags().Float64Var(&f.quality, "quality", 0, "Compress quality in (0,1]")
	cmd.Flags().IntVar(&f.maxWidth, "max-width", -1, "Downsize crops wider than this, 0 = never")
	cmd.Flags().StringVarP(&f.outDir, "out", "o", "", "Output directory")
	cmd.Flags().StringVar(&f.frame, "frame", "", "Initial framing: none|saliency|ollama")
}

func runCrop(cmd *cobra.Command, f *cropFlags, files []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	base, err := f.request(cfg)
	if err != nil {
		return err
	}
	if base.Options, err = f.codecOptions(cfg); err != nil {
		return err
	}
	if base.Locator, err = f.locator(cfg); err != nil {
		return err
	}

	codecCfg, err := cfg.CodecConfig()
	if err != nil {
		return err
	}
	if f.outDir != "" {
		codecCfg.OutputDir = f.outDir
	}
	if err := utils.EnsureDir(codecCfg.OutputDir); err != nil {
		return err
	}
	cropper := cropkit.NewCropper(codecCfg, logger)

	type output struct {
		Source  string             `json:"source"`
		Output  string             `json:"output"`
		Cropped bool               `json:"cropped"`
		Rect    *geometry.CropRect `json:"rect,omitempty"`
		Warning string             `json:"warning,omitempty"`
	}
	results := make([]output, len(files))

	n := workers
	if n <= 0 || len(files) == 1 {
		n = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n)

	var mu sync.Mutex
	warnings := 0
	for i, file := range files {
		g.Go(func() error {
			req := base
			req.URI = file
			res, err := cropper.Crop(gctx, req)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}

			out := output{Source: file, Output: res.URI, Cropped: res.Cropped}
			if res.Cropped || res.Warning != nil {
				rect := res.Rect
				out.Rect = &rect
			}
			if res.Warning != nil {
				out.Warning = res.Warning.Error()
				mu.Lock()
				warnings++
				mu.Unlock()
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("crop finished",
		zap.Int("images", len(files)),
		zap.Int("warnings", warnings))
	return printJSON(cmd, results)
}

func runRect(cmd *cobra.Command, args []string) error {
	req, err := rectOpts.request(cfg)
	if err != nil {
		return err
	}

	var rect geometry.CropRect
	switch {
	case natural != "":
		w, h, err := parseSize(natural)
		if err != nil {
			return fmt.Errorf("--natural: %w", err)
		}
		t := req.Transform.Clamped(req.Config.Zoom)
		rect, err = geometry.ComputeCropRect(req.Container, geometry.NaturalSize{Width: int(w), Height: int(h)}, t, req.Config.Overlay)
		if err != nil {
			return err
		}
	case len(args) == 1:
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		codecCfg, err := cfg.CodecConfig()
		if err != nil {
			return err
		}
		req.URI = args[0]
		rect, err = cropkit.NewCropper(codecCfg, logger).Rect(ctx, req)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("either an image or --natural is required")
	}

	return printJSON(cmd, struct {
		geometry.CropRect
		Geometry string `json:"geometry"`
	}{rect, rect.String()})
}

// request builds the layout part of a crop request from the profile and overrides
func (f *cropFlags) request(c *config.Config) (cropkit.Request, error) {
	profile, err := c.Profile(f.profile)
	if err != nil {
		return cropkit.Request{}, err
	}
	if f.shape != "" {
		profile.Shape = f.shape
	}
	if f.size > 0 {
		profile.Size = f.size
	}
	if f.aspect > 0 {
		profile.AspectRatio = f.aspect
	}
	if f.fill > 0 {
		profile.FillFraction = f.fill
	}
	overlay, err := profile.Overlay()
	if err != nil {
		return cropkit.Request{}, err
	}
	zoom := profile.ZoomRange()
	if err := zoom.Validate(); err != nil {
		return cropkit.Request{}, err
	}

	w, h, err := parseSize(f.container)
	if err != nil {
		return cropkit.Request{}, fmt.Errorf("--container: %w", err)
	}

	req := cropkit.Request{
		Container: geometry.ContainerFrame{Width: w, Height: h},
		Transform: geometry.ViewTransform{OffsetX: f.offsetX, OffsetY: f.offsetY, Scale: f.scale},
	}
	req.Config.Overlay = overlay
	req.Config.Zoom = zoom
	return req, nil
}

func (f *cropFlags) codecOptions(c *config.Config) (codec.Options, error) {
	opts, err := c.CodecOptions()
	if err != nil {
		return codec.Options{}, err
	}
	if f.format != "" {
		if opts.Format, err = codec.ParseFormat(f.format); err != nil {
			return codec.Options{}, err
		}
	}
	if f.quality != 0 {
		if f.quality < 0 || f.quality > 1 {
			return codec.Options{}, fmt.Errorf("--quality must be in (0,1]")
		}
		opts.CompressQuality = f.quality
	}
	if f.maxWidth >= 0 {
		opts.MaxWidth = f.maxWidth
	}
	return opts, nil
}

// locator returns nil when no initial framing is wanted
func (f *cropFlags) locator(c *config.Config) (framing.Locator, error) {
	backend := c.Framing.Backend
	if f.frame != "" {
		backend = f.frame
	}

	switch backend {
	case "", "none":
		return nil, nil
	case "saliency":
		return framing.NewSaliencyLocator(), nil
	case "ollama":
		client, err := ollama.NewClient(c.Framing.URL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return &framing.VisionLocator{
			Client:        client,
			Model:         c.Framing.Model,
			SendSize:      c.Framing.SendSize,
			SendQuality:   c.Framing.SendQuality,
			MinConfidence: c.Framing.MinConfidence,
			Logger:        logger,
		}, nil
	default:
		return nil, fmt.Errorf("unknown framing backend %q (use none, saliency or ollama)", backend)
	}
}

// parseSize parses "WxH" into positive dimensions
func parseSize(s string) (float64, float64, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q is not WxH", s)
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(ws), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(hs), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("size %q must be positive", s)
	}
	return w, h, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
