// Command cdsprice prices one CDS pricing request read from a JSON file (or
// stdin) and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rzzdr/cds-pricing-engine/internal/pricer"
	"github.com/rzzdr/cds-pricing-engine/internal/risk"
	"github.com/rzzdr/cds-pricing-engine/pkg/models"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/logger"
)

var (
	inFile      = flag.String("in", "-", "Pricing request JSON file, - for stdin")
	formulaFlag = flag.String("formula", "", "Accrual on default formula: ORIGINAL_ISDA, MARKIT_FIX or CORRECT")
	priceType   = flag.String("price-type", "", "CLEAN or DIRTY")
	withSensi   = flag.Bool("sensitivity", false, "Include curve node sensitivities")
	logLevel    = flag.String("log-level", "warn", "Log level")
)

func main() {
	flag.Parse()
	logger.Init(*logLevel, "production")

	if err := run(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "cdsprice: %v\n", err)
		os.Exit(1)
	}
}

func run(out io.Writer) error {
	req, err := readRequest(*inFile)
	if err != nil {
		return err
	}
	if *formulaFlag != "" {
		req.Formula = strings.ToUpper(*formulaFlag)
	}
	if *priceType != "" {
		req.PriceType = strings.ToUpper(*priceType)
	}
	if *withSensi {
		req.WithSensitivity = true
	}

	service := risk.NewPricingService(pricer.OriginalISDA, pricer.PriceTypeClean, nil)
	result, err := service.Price(context.Background(), req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func readRequest(path string) (models.PricingRequest, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return models.PricingRequest{}, fmt.Errorf("read request: %w", err)
	}

	var req models.PricingRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return models.PricingRequest{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}
