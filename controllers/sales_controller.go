package controllers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"motoshop/models"
)

// salesDimensions is the column list the daily query groups on. The
// source rows are already granular on these, so grouping keeps each
// combination as its own data point.
const salesDimensions = `
	model, brand, vehicle_type, fuel_type, city, dealer_type,
	customer_age_group, customer_gender, occupation_of_buyer, payment_mode,
	festive_season_purchase, advertisement_type, service_availability,
	weather_condition, road_conditions, engine_capacity_cc, price_inr,
	petrol_price_at_purchase, competitor_brand_presence, discounts_offers,
	stock_on_date`

type SalesController struct {
	DB          *sql.DB
	ForecastURL string
	HTTPClient  *http.Client
}

func NewSalesController(db *sql.DB, forecastURL string) *SalesController {
	return &SalesController{
		DB:          db,
		ForecastURL: forecastURL,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (sc *SalesController) GetSalesDetails(c *gin.Context) {
	startDate := c.Query("startDate")
	endDate := c.Query("endDate")
	if startDate == "" || endDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Start date and end date are required."})
		return
	}

	productID, err := strconv.Atoi(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	ctx := c.Request.Context()

	var name string
	var totalLeftInStock int
	err = sc.DB.QueryRowContext(ctx,
		"SELECT name, quantity FROM products WHERE id = ?", productID,
	).Scan(&name, &totalLeftInStock)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found."})
		return
	}
	if err != nil {
		log.Printf("Error fetching sales details: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	dailySales, err := sc.queryDailySales(ctx, `
		SELECT DATE_FORMAT(sale_date, '%Y-%m-%d'), COALESCE(SUM(quantity_sold), 0),`+salesDimensions+`
		FROM sales_records
		WHERE product_id = ? AND sale_date >= ? AND sale_date <= ?
		GROUP BY sale_date,`+salesDimensions+`
		ORDER BY sale_date`,
		productID, startDate, endDate,
	)
	if err != nil {
		log.Printf("Error fetching sales details: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	// Fetch the end day's row separately and append it so the exact
	// range end is always present even when date-boundary rounding
	// would group it out.
	endDayRows, err := sc.queryDailySales(ctx, `
		SELECT DATE_FORMAT(sale_date, '%Y-%m-%d'), COALESCE(SUM(quantity_sold), 0),`+salesDimensions+`
		FROM sales_records
		WHERE product_id = ? AND sale_date = DATE(?)
		GROUP BY sale_date,`+salesDimensions+`
		LIMIT 1`,
		productID, endDate,
	)
	if err != nil {
		log.Printf("Error fetching end day details: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	var endDay *models.DailySale
	if len(endDayRows) > 0 {
		endDay = &endDayRows[0]
	}

	var quantitySold int
	err = sc.DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity_sold), 0)
		FROM sales_records
		WHERE product_id = ? AND sale_date BETWEEN ? AND ?`,
		productID, startDate, endDate,
	).Scan(&quantitySold)
	if err != nil {
		log.Printf("Error summing sales: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	c.JSON(http.StatusOK, models.SalesDetails{
		Name:             name,
		QuantitySold:     quantitySold,
		TotalLeftInStock: totalLeftInStock,
		StartDate:        startDate,
		EndDate:          endDate,
		DailySales:       AppendEndDay(dailySales, endDay),
		EndDayData:       endDay,
	})
}

// AppendEndDay guarantees the range-end data point is the final entry
// when end-day data exists.
func AppendEndDay(sales []models.DailySale, endDay *models.DailySale) []models.DailySale {
	if endDay == nil {
		return sales
	}
	return append(sales, *endDay)
}

func (sc *SalesController) queryDailySales(ctx context.Context, query string, args ...any) ([]models.DailySale, error) {
	rows, err := sc.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []models.DailySale
	for rows.Next() {
		var s models.DailySale
		if err := rows.Scan(&s.SaleDate, &s.DailyQuantitySold,
			&s.Model, &s.Brand, &s.VehicleType, &s.FuelType, &s.City, &s.DealerType,
			&s.CustomerAgeGroup, &s.CustomerGender, &s.OccupationOfBuyer, &s.PaymentMode,
			&s.FestiveSeasonPurchase, &s.AdvertisementType, &s.ServiceAvailability,
			&s.WeatherCondition, &s.RoadConditions, &s.EngineCapacityCC, &s.PriceINR,
			&s.PetrolPriceAtPurchase, &s.CompetitorBrandPresence, &s.DiscountsOffers,
			&s.StockOnDate); err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// UploadCSV parses a sales export in the known two-wheeler format and
// returns the same summary shape as the sales-details endpoint. Rows
// are not persisted.
func (sc *SalesController) UploadCSV(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process CSV file"})
		return
	}
	defer f.Close()

	details, err := ParseSalesCSV(f)
	if err != nil {
		if errors.Is(err, errEmptyCSV) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "CSV file is empty"})
			return
		}
		log.Printf("Error processing CSV: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process CSV file"})
		return
	}

	c.JSON(http.StatusOK, details)
}

var errEmptyCSV = errors.New("csv file is empty")

// ParseSalesCSV reads a header-mapped CSV of daily sales rows into the
// sales-details summary.
func ParseSalesCSV(r io.Reader) (*models.SalesDetails, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, errEmptyCSV
	}
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}
	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}
	intField := func(record []string, name string) int {
		n, _ := strconv.Atoi(field(record, name))
		return n
	}
	decField := func(record []string, name string) decimal.Decimal {
		d, err := decimal.NewFromString(field(record, name))
		if err != nil {
			return decimal.Zero
		}
		return d
	}

	var sales []models.DailySale
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		sales = append(sales, models.DailySale{
			SaleDate:                field(record, "Date"),
			DailyQuantitySold:       intField(record, "Quantity_Sold"),
			Model:                   field(record, "Model"),
			Brand:                   field(record, "Brand"),
			VehicleType:             field(record, "Vehicle_Type"),
			FuelType:                field(record, "Fuel_Type"),
			City:                    field(record, "City"),
			DealerType:              field(record, "Dealer_Type"),
			CustomerAgeGroup:        field(record, "Customer_Age_Group"),
			CustomerGender:          field(record, "Customer_Gender"),
			OccupationOfBuyer:       field(record, "Occupation_of_Buyer"),
			PaymentMode:             field(record, "Payment_Mode"),
			FestiveSeasonPurchase:   field(record, "Festive_Season_Purchase"),
			AdvertisementType:       field(record, "Advertisement_Type"),
			ServiceAvailability:     field(record, "Service_Availability"),
			WeatherCondition:        field(record, "Weather_Condition"),
			RoadConditions:          field(record, "Road_Conditions"),
			EngineCapacityCC:        intField(record, "Engine_Capacity_CC"),
			PriceINR:                decField(record, "Price_INR"),
			PetrolPriceAtPurchase:   decField(record, "Petrol_Price_at_Purchase"),
			CompetitorBrandPresence: field(record, "Competitor_Brand_Presence"),
			DiscountsOffers:         field(record, "Discounts_Offers"),
			StockOnDate:             intField(record, "Stock_on_Date"),
		})
	}

	if len(sales) == 0 {
		return nil, errEmptyCSV
	}

	totalSold := 0
	for _, s := range sales {
		totalSold += s.DailyQuantitySold
	}
	last := sales[len(sales)-1]

	return &models.SalesDetails{
		Name:             sales[0].Brand,
		QuantitySold:     totalSold,
		TotalLeftInStock: last.StockOnDate,
		StartDate:        sales[0].SaleDate,
		EndDate:          last.SaleDate,
		DailySales:       sales,
		EndDayData:       &last,
	}, nil
}

// Analyze forwards aggregated sales rows to the external forecasting
// service and relays its response. No prediction logic lives here.
func (sc *SalesController) Analyze(c *gin.Context) {
	var req models.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	body, err := json.Marshal(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Analysis failed"})
		return
	}

	httpReq, err := http.NewRequestWithContext(c.Request.Context(),
		http.MethodPost, sc.ForecastURL, bytes.NewReader(body))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Analysis failed"})
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := sc.HTTPClient.Do(httpReq)
	if err != nil {
		log.Printf("Analysis error: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"message": "Analysis failed"})
		return
	}
	defer resp.Body.Close()

	c.DataFromReader(resp.StatusCode, resp.ContentLength,
		resp.Header.Get("Content-Type"), resp.Body, nil)
}
