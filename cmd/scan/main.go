package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"
)

const (
	maxGoroutines = 10
)

var (
	listFlag    = flag.String("l", "", "The path to the list of midi files,\nfind . -type f -name \"*.mid\" > midi_list.txt")
	maxFlag     = flag.Int("p", maxGoroutines, "Number of files processed in parallel, must be > 0")
	outFlag     = flag.String("o", "", "Directory for CBOR packet captures, one per file")
	verboseFlag = flag.Bool("v", false, "Debug logging")
)

func readList(file *os.File) <-chan string {
	out := make(chan string)

	scanner := bufio.NewScanner(file)
	scanner.Split(bufio.ScanLines)

	go func() {
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				out <- line
			}
		}
		close(out)
	}()

	return out
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s \n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *listFlag == "" || *maxFlag <= 0 {
		flag.Usage()
		return
	}

	newLogger := zap.NewProduction
	if *verboseFlag {
		newLogger = zap.NewDevelopment
	}
	logger, err := newLogger()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	enableLogging(logger, *verboseFlag)

	f, err := os.Open(*listFlag)
	if err != nil {
		logger.Fatal("open list", zap.Error(err))
	}
	defer f.Close()

	if *outFlag != "" {
		if err := os.MkdirAll(*outFlag, 0755); err != nil {
			logger.Fatal("create output directory", zap.Error(err))
		}
	}

	r, err := newReport(context.Background(), readList(f), *maxFlag, *outFlag)
	if err != nil {
		logger.Fatal("scan", zap.Error(err))
	}

	logger.Info("scan finished",
		zap.Int("files", r.Files),
		zap.Int("failed", r.Failed),
		zap.Int("tracks", r.Tracks),
		zap.Int("packets", r.Packets),
		zap.Int("mismatches", r.Mismatches))

	if r.Mismatches > 0 {
		logger.Sync()
		os.Exit(1)
	}
}
