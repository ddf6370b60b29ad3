package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ArowuTest/loyalty-ledger/internal/services"
	"github.com/ArowuTest/loyalty-ledger/internal/utils"
)

// parseOrders reads a CSV export with a header row naming the order,
// buyer and total columns in any order.
func parseOrders(r io.Reader) ([]services.OrderCompleted, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV file: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV file is empty or has only header")
	}

	header := records[0]
	orderCol := utils.FindColumnIndex(header, "orderId", "order_id")
	buyerCol := utils.FindColumnIndex(header, "buyerId", "buyer_id", "userId")
	totalCol := utils.FindColumnIndex(header, "totalAmount", "total_amount", "total")
	if orderCol < 0 || buyerCol < 0 || totalCol < 0 {
		return nil, fmt.Errorf("CSV header must name orderId, buyerId and totalAmount columns, got %v", header)
	}

	orders := make([]services.OrderCompleted, 0, len(records)-1)
	for i, record := range records[1:] {
		total, err := strconv.ParseInt(strings.TrimSpace(record[totalCol]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid totalAmount %q: %w", i+2, record[totalCol], err)
		}
		orders = append(orders, services.OrderCompleted{
			OrderID:     strings.TrimSpace(record[orderCol]),
			BuyerID:     strings.TrimSpace(record[buyerCol]),
			TotalAmount: total,
		})
	}
	return orders, nil
}
