// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// camvid inspects a local copy of the CamVid dataset: it prints a summary of a split, and optionally
// renders the labels as colored images, computes class statistics, builds the tensors cache and
// benchmarks the loading speed of the training dataset.
//
// Example:
//
//	camvid -data=~/work/camvid -split=train -stats -plot=/tmp/camvid_freqs.png -set="camvid_parallelism=8"
package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/camvid/internal/settings"
	"github.com/gomlx/camvid/pkg/camvid"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/pkg/ml/datasets"
	"github.com/janpfeifer/must"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

var (
	flagDataDir    = flag.String("data", "~/work/camvid", "Root directory of the CamVid dataset, with the train, val and test splits.")
	flagSplit      = flag.String("split", "train", "Split to inspect: train, val or test (or one of their synonyms).")
	flagRender     = flag.String("render", "", "If set, directory where to save the labels rendered with the class colors.")
	flagRenderGray = flag.Bool("render_gray", false, "Render the labels in gray levels instead of colors, if -render is set.")
	flagMax        = flag.Int("max", 0, "Maximum number of labels to render with -render. 0 renders all.")
	flagStats      = flag.Bool("stats", false, "Count the pixels per class and compute the median frequency balancing weights.")
	flagStatsCSV   = flag.String("stats_csv", "", "If set, file where to save the class statistics as CSV. Implies -stats.")
	flagPlot       = flag.String("plot", "", "If set, file (.png or .svg) where to save a plot of the class frequencies. Implies -stats.")
	flagChannels   = flag.Bool("channels", false, "Compute the per-channel mean and standard deviation of the images.")
	flagCache      = flag.String("cache", "", "If set, directory where to build (or load) the scaled tensors cache of the split.")
	flagBench      = flag.Int("bench", 0, "If > 0, number of batches to yield from the training dataset, to measure its throughput.")
)

func main() {
	ctx := camvid.CreateDefaultContext()
	settingsFlag := settings.CreateFlag(nil, ctx, "")
	klog.InitFlags(nil)
	flag.Parse()

	err := exceptions.TryCatch[error](func() {
		paramsSet := must.M1(settings.Parse(ctx, *settingsFlag))
		if len(paramsSet) > 0 {
			klog.V(1).Infof("Hyperparameters set:\n%s", settings.SprintModified(ctx, paramsSet))
		}
		cfg := must.M1(camvid.ConfigFromContext(ctx))
		idx := must.M1(camvid.NewIndex(*flagDataDir, *flagSplit))
		printSummary(idx, cfg)

		if *flagRender != "" {
			renderLabels(idx, *flagRender, *flagRenderGray, *flagMax)
		}
		if *flagStats || *flagStatsCSV != "" || *flagPlot != "" {
			classStats(idx, cfg.Parallelism)
		}
		if *flagChannels {
			channelStats(idx, cfg.Parallelism)
		}
		if *flagCache != "" {
			buildCache(idx, *flagCache, cfg)
		}
		if *flagBench > 0 {
			benchmark(idx, cfg, *flagBench)
		}
	})
	if err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}

func printSummary(idx *camvid.Index, cfg camvid.Config) {
	table := newPlainTable(lipgloss.Right, lipgloss.Left)
	table.Row("root", idx.Root())
	table.Row("split", idx.Split().String())
	table.Row("# images", humanize.Comma(int64(idx.Len())))
	if idx.Len() > 0 {
		sample := must.M1(idx.Sample(0))
		img, _ := must.M2(idx.Get(0))
		table.Row("first image", fmt.Sprintf("%s (%dx%d)", sample.ImagePath, img.Bounds().Dx(), img.Bounds().Dy()))
		table.Row("first label", sample.LabelPath)
	}
	table.Row("output size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
	table.Row("dtypes", fmt.Sprintf("images %s, labels %s", cfg.ImageDType, cfg.LabelDType))
	printTable("CamVid", table)

	if klog.V(1).Enabled() {
		params := newPlainTable(lipgloss.Left)
		params.Headers("Hyperparameter", "Type", "Value")
		for _, p := range settings.List(camvid.CreateDefaultContext()) {
			params.Row(p.Path, fmt.Sprintf("%T", p.Value), fmt.Sprintf("%v", p.Value))
		}
		printTable("Default hyperparameters", params)
	}
}

// renderLabels saves the labels of the split colored with the class palette (or in gray levels).
func renderLabels(idx *camvid.Index, dir string, gray bool, maxImages int) {
	must.M(os.MkdirAll(dir, 0755))
	n := idx.Len()
	if maxImages > 0 {
		n = min(n, maxImages)
	}
	pbar := progressbar.Default(int64(n), "Rendering labels")
	for i := range n {
		sample := must.M1(idx.Sample(i))
		_, classes := must.M2(idx.GetClasses(i))
		var rendered image.Image
		suffix := "_colors.png"
		if gray {
			rendered = must.M1(camvid.EncodeGray(classes))
			suffix = "_gray.png"
		} else {
			rendered = must.M1(camvid.Encode(classes))
		}
		base := strings.TrimSuffix(filepath.Base(sample.LabelPath), filepath.Ext(sample.LabelPath))
		must.M(imaging.Save(rendered, filepath.Join(dir, base+suffix)))
		_ = pbar.Add(1)
	}
	_ = pbar.Finish()
	fmt.Printf("\n%d labels rendered to %q\n", n, dir)
}

func classStats(idx *camvid.Index, parallelism int) {
	start := time.Now()
	counts := must.M1(camvid.CountClasses(idx, parallelism))
	klog.V(1).Infof("Classes counted in %s", time.Since(start))

	freqs := counts.Frequencies()
	weights := counts.MedianFrequencyWeights()
	table := newPlainTable(lipgloss.Left, lipgloss.Left, lipgloss.Right)
	table.Headers("Class", "Color", "Pixels", "Frequency", "Weight", "Published weight")
	for c := range camvid.NumClasses {
		class := camvid.Class(c)
		rgba := class.Color()
		table.Row(
			class.String(),
			colorSwatch(rgba.R, rgba.G, rgba.B),
			humanize.Comma(counts.Pixels[c]),
			fmt.Sprintf("%.4f", freqs[c]),
			fmt.Sprintf("%.4f", weights[c]),
			fmt.Sprintf("%.4f", class.Weight()),
		)
	}
	printTable(fmt.Sprintf("Class statistics (%d labels)", counts.NumImages), table)

	if *flagStatsCSV != "" {
		f := must.M1(os.Create(*flagStatsCSV))
		must.M(counts.WriteCSV(f))
		must.M(f.Close())
		fmt.Printf("Class statistics saved to %q\n", *flagStatsCSV)
	}
	if *flagPlot != "" {
		must.M(camvid.PlotClassFrequencies(counts, *flagPlot))
		fmt.Printf("Class frequencies plot saved to %q\n", *flagPlot)
	}
}

func channelStats(idx *camvid.Index, parallelism int) {
	mean, std := must.M2(camvid.ChannelStats(idx, parallelism))
	published, publishedStd := camvid.Mean(), camvid.Std()
	table := newPlainTable(lipgloss.Left, lipgloss.Right)
	table.Headers("Channel", "Mean", "Std", "Published mean", "Published std")
	for ii, channel := range []string{"R", "G", "B"} {
		table.Row(channel,
			fmt.Sprintf("%.4f", mean[ii]), fmt.Sprintf("%.4f", std[ii]),
			fmt.Sprintf("%.4f", published[ii]), fmt.Sprintf("%.4f", publishedStd[ii]))
	}
	printTable("Channel statistics", table)
}

func buildCache(idx *camvid.Index, dir string, cfg camvid.Config) {
	cache := must.M1(camvid.LoadOrBuildCache(idx, dir, cfg.Height, cfg.Width))
	table := newPlainTable(lipgloss.Right, lipgloss.Left)
	table.Row("images", fmt.Sprintf("%s, %s", cache.Images.Shape(), humanize.Bytes(uint64(cache.Images.Shape().Memory()))))
	table.Row("labels", fmt.Sprintf("%s, %s", cache.Labels.Shape(), humanize.Bytes(uint64(cache.Labels.Shape().Memory()))))
	printTable("Cache", table)
}

// benchmark yields numBatches from the (parallelized) dataset and reports the throughput.
func benchmark(idx *camvid.Index, cfg camvid.Config, numBatches int) {
	if idx.Len() == 0 {
		klog.Warningf("Split %q has no images, skipping benchmark", idx.Split())
		return
	}
	ds := must.M1(camvid.NewDataset(idx.Split().String(), idx, cfg))
	ds.BatchSize(cfg.TrainBatchSize, false).Shuffle().Infinite(true)
	pds := datasets.CustomParallel(ds).Parallelism(cfg.Parallelism).Buffer(10).Start()
	defer pds.Done()

	var numExamples, numBytes int64
	start := time.Now()
	for range numBatches {
		_, inputs, labels := must.M3(pds.Yield())
		numExamples += int64(max(cfg.TrainBatchSize, 1))
		numBytes += int64(inputs[0].Shape().Memory() + labels[0].Shape().Memory())
	}
	elapsed := time.Since(start)
	table := newPlainTable(lipgloss.Right, lipgloss.Left)
	table.Row("batches", humanize.Comma(int64(numBatches)))
	table.Row("examples", humanize.Comma(numExamples))
	table.Row("elapsed", elapsed.String())
	table.Row("examples/s", fmt.Sprintf("%.1f", float64(numExamples)/elapsed.Seconds()))
	table.Row("throughput", humanize.Bytes(uint64(float64(numBytes)/elapsed.Seconds()))+"/s")
	printTable("Benchmark", table)
}
