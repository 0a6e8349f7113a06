package models

import "github.com/shopspring/decimal"

// DailySale is one grouped row of the per-day sales query, carrying
// the full set of descriptive dimensions the source data is already
// granular on.
type DailySale struct {
	SaleDate                string          `json:"saleDate"`
	DailyQuantitySold       int             `json:"dailyQuantitySold"`
	Model                   string          `json:"Model"`
	Brand                   string          `json:"Brand"`
	VehicleType             string          `json:"Vehicle_Type"`
	FuelType                string          `json:"Fuel_Type"`
	City                    string          `json:"City"`
	DealerType              string          `json:"Dealer_Type"`
	CustomerAgeGroup        string          `json:"Customer_Age_Group"`
	CustomerGender          string          `json:"Customer_Gender"`
	OccupationOfBuyer       string          `json:"Occupation_of_Buyer"`
	PaymentMode             string          `json:"Payment_Mode"`
	FestiveSeasonPurchase   string          `json:"Festive_Season_Purchase"`
	AdvertisementType       string          `json:"Advertisement_Type"`
	ServiceAvailability     string          `json:"Service_Availability"`
	WeatherCondition        string          `json:"Weather_Condition"`
	RoadConditions          string          `json:"Road_Conditions"`
	EngineCapacityCC        int             `json:"Engine_Capacity_CC"`
	PriceINR                decimal.Decimal `json:"Price_INR"`
	PetrolPriceAtPurchase   decimal.Decimal `json:"Petrol_Price_at_Purchase"`
	CompetitorBrandPresence string          `json:"Competitor_Brand_Presence"`
	DiscountsOffers         string          `json:"Discounts_Offers"`
	StockOnDate             int             `json:"Stock_on_Date"`
}

type SalesDetails struct {
	Name             string      `json:"name"`
	QuantitySold     int         `json:"quantitySold"`
	TotalLeftInStock int         `json:"totalLeftInStock"`
	StartDate        string      `json:"startDate"`
	EndDate          string      `json:"endDate"`
	DailySales       []DailySale `json:"dailySales"`
	EndDayData       *DailySale  `json:"endDayData"`
}

type AnalysisRequest struct {
	SalesData        []AnalysisSale `json:"salesData" binding:"required"`
	ReorderFrequency int            `json:"reorderFrequency"`
	StartDate        string         `json:"startDate"`
	EndDate          string         `json:"endDate"`
}

type AnalysisSale struct {
	Date         string `json:"date"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	QuantitySold int    `json:"quantity_sold"`
	CurrentStock int    `json:"current_stock"`
}
