package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"jp2kd/internal/decoder"
	"jp2kd/pkg/types"
)

func newDecodeCmd(opts *options) *cobra.Command {
	var format, region, ratio string
	cmd := &cobra.Command{
		Use:     "decode <in.jp2> <out.bmp>",
		Short:   "Decode an image to a BMP file",
		Example: "  jp2kd decode scan.jp2 scan.bmp --format rgb565 --region 0,0,512,512",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dopts, err := parseDecodeFlags(format, region, ratio)
			if err != nil {
				return err
			}
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c, finish, err := openSession(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer finish()
			img, err := c.Decode(ctx, data, dopts)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[1], img.BMP, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d %s (%d bytes)\n", args[1], img.Width, img.Height, img.Format, len(img.BMP))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "argb8888", "Output pixel format: argb8888|rgb565")
	cmd.Flags().StringVar(&region, "region", "", "Pixel region left,top,right,bottom")
	cmd.Flags().StringVar(&ratio, "ratio", "", "Ratio region left,top,right,bottom (0.0 - 1.0)")
	cmd.MarkFlagsMutuallyExclusive("region", "ratio")
	return cmd
}

func newSizeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "size <in.jp2>",
		Short: "Print image dimensions as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c, finish, err := openSession(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer finish()
			s, err := c.SizeOf(ctx, data)
			if err != nil {
				return err
			}
			return printJSON(cmd, types.SizeResponse{Width: s.Width, Height: s.Height})
		},
	}
}

func newUsageCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Print engine memory usage of a freshly initialized decoder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, finish, err := openSession(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer finish()
			u, err := c.ResourceUsage(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, types.UsageResponse{
				WasmHeapSizeBytes: u.WasmHeapSizeBytes,
				JSHeapSizeLimit:   u.JSHeapSizeLimit,
				TotalJSHeapSize:   u.TotalJSHeapSize,
				UsedJSHeapSize:    u.UsedJSHeapSize,
			})
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseDecodeFlags(format, region, ratio string) (decoder.DecodeOptions, error) {
	var opts decoder.DecodeOptions
	f, err := decoder.ParseColorFormat(format)
	if err != nil {
		return opts, err
	}
	opts.Format = f
	switch {
	case region != "":
		v, err := parseRect(region, "--region")
		if err != nil {
			return opts, err
		}
		for _, b := range v {
			if b != math.Trunc(b) {
				return opts, fmt.Errorf("--region: bounds must be integers, got %q", region)
			}
			if b < math.MinInt32 || b > math.MaxInt32 {
				return opts, fmt.Errorf("--region: bound %g out of range", b)
			}
		}
		opts.Region = decoder.PixelRect(int(v[0]), int(v[1]), int(v[2]), int(v[3]))
	case ratio != "":
		v, err := parseRect(ratio, "--ratio")
		if err != nil {
			return opts, err
		}
		opts.Region = decoder.RatioRect(v[0], v[1], v[2], v[3])
	}
	return opts, nil
}

// parseRect reads four comma-separated numbers. Integer rects parse exactly
// as floats, so one parser serves both flags. Empty fields are errors.
func parseRect(s, flag string) ([4]float64, error) {
	var out [4]float64
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return out, fmt.Errorf("%s: expected left,top,right,bottom, got %q", flag, s)
	}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return out, fmt.Errorf("%s: invalid bound %q", flag, p)
		}
		out[i] = v
	}
	return out, nil
}
