package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoshop/models"
)

const sampleCSV = `Date,Model,Brand,Price_INR,Quantity_Sold,Vehicle_Type,Engine_Capacity_CC,Fuel_Type,City,Dealer_Type,Customer_Age_Group,Customer_Gender,Occupation_of_Buyer,Payment_Mode,Festive_Season_Purchase,Advertisement_Type,Service_Availability,Weather_Condition,Road_Conditions,Petrol_Price_at_Purchase,Competitor_Brand_Presence,Discounts_Offers,Stock_on_Date
2024-01-01,Splendor Plus,Hero,75000,3,Motorcycle,97,Petrol,Pune,Franchise,26-35,Male,Salaried,Cash,No,TV,Yes,Sunny,Good,96.50,High,None,120
2024-01-02,Splendor Plus,Hero,75000,5,Motorcycle,97,Petrol,Pune,Franchise,18-25,Female,Student,UPI,Yes,Online,Yes,Rainy,Average,96.75,High,5%,115
`

func TestParseSalesCSV(t *testing.T) {
	details, err := ParseSalesCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, "Hero", details.Name)
	assert.Equal(t, 8, details.QuantitySold)
	assert.Equal(t, 115, details.TotalLeftInStock)
	assert.Equal(t, "2024-01-01", details.StartDate)
	assert.Equal(t, "2024-01-02", details.EndDate)
	require.Len(t, details.DailySales, 2)

	first := details.DailySales[0]
	assert.Equal(t, 3, first.DailyQuantitySold)
	assert.Equal(t, "Splendor Plus", first.Model)
	assert.Equal(t, 97, first.EngineCapacityCC)
	assert.Equal(t, "75000.00", first.PriceINR.StringFixed(2))
	assert.Equal(t, "96.50", first.PetrolPriceAtPurchase.StringFixed(2))

	require.NotNil(t, details.EndDayData)
	assert.Equal(t, "2024-01-02", details.EndDayData.SaleDate)
	assert.Equal(t, 5, details.EndDayData.DailyQuantitySold)
}

func TestParseSalesCSVEmpty(t *testing.T) {
	_, err := ParseSalesCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, errEmptyCSV)

	// A header with no data rows is also empty.
	headerOnly := strings.SplitN(sampleCSV, "\n", 2)[0] + "\n"
	_, err = ParseSalesCSV(strings.NewReader(headerOnly))
	assert.ErrorIs(t, err, errEmptyCSV)
}

func TestParseSalesCSVMissingColumns(t *testing.T) {
	// Unknown layouts degrade to zero values instead of failing.
	details, err := ParseSalesCSV(strings.NewReader("Date,Quantity_Sold\n2024-03-01,4\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, details.QuantitySold)
	assert.Equal(t, "", details.DailySales[0].Brand)
	assert.True(t, details.DailySales[0].PriceINR.IsZero())
}

func TestAppendEndDay(t *testing.T) {
	sales := []models.DailySale{
		{SaleDate: "2024-01-01", DailyQuantitySold: 2},
	}

	got := AppendEndDay(sales, nil)
	assert.Len(t, got, 1)

	endDay := &models.DailySale{SaleDate: "2024-01-31", DailyQuantitySold: 7}
	got = AppendEndDay(sales, endDay)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-31", got[len(got)-1].SaleDate)
	assert.Equal(t, 7, got[len(got)-1].DailyQuantitySold)
}

func TestAnalyzeRelaysForecastResponse(t *testing.T) {
	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"forecast": [12, 14, 9]}`))
	}))
	defer forecast.Close()

	sc := NewSalesController(nil, forecast.URL)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/sales/analyze", sc.Analyze)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sales/analyze",
		strings.NewReader(`{"salesData": [{"date": "2024-01-01", "quantity_sold": 3}]}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"forecast"`)
}

func TestAnalyzeForecastUnreachable(t *testing.T) {
	sc := NewSalesController(nil, "http://127.0.0.1:1/analyze")

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/sales/analyze", sc.Analyze)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sales/analyze",
		strings.NewReader(`{"salesData": []}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
