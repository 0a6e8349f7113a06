package controllers

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"motoshop/middlewares"
	"motoshop/models"
)

// ProductCache is the best-effort read cache for product detail
// lookups.
type ProductCache interface {
	GetProduct(ctx context.Context, id int) (*models.Product, bool)
	SetProduct(ctx context.Context, p *models.Product) error
	InvalidateProduct(ctx context.Context, id int) error
}

type ProductController struct {
	DB        *sql.DB
	Cache     ProductCache // optional
	UploadDir string
}

func NewProductController(db *sql.DB, cache ProductCache, uploadDir string) *ProductController {
	return &ProductController{DB: db, Cache: cache, UploadDir: uploadDir}
}

func (pc *ProductController) GetAllProducts(c *gin.Context) {
	rows, err := pc.DB.QueryContext(c.Request.Context(), `
		SELECT id, name, description, price, quantity, COALESCE(image_url, ''), COALESCE(created_by, ''), created_at
		FROM products
		ORDER BY created_at DESC`,
	)
	if err != nil {
		log.Printf("Error fetching products: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching products"})
		return
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity,
			&p.ImageURL, &p.CreatedBy, &p.CreatedAt); err != nil {
			log.Printf("Error scanning product: %v", err)
			continue
		}
		products = append(products, p)
	}

	c.JSON(http.StatusOK, products)
}

func (pc *ProductController) GetProduct(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid product ID"})
		return
	}

	ctx := c.Request.Context()

	if pc.Cache != nil {
		if p, hit := pc.Cache.GetProduct(ctx, id); hit {
			c.JSON(http.StatusOK, p)
			return
		}
	}

	p, err := pc.fetchProduct(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
		return
	}
	if err != nil {
		log.Printf("Error fetching product: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching product"})
		return
	}

	if pc.Cache != nil {
		if err := pc.Cache.SetProduct(ctx, p); err != nil {
			log.Printf("Error caching product %d: %v", id, err)
		}
	}

	c.JSON(http.StatusOK, p)
}

func (pc *ProductController) fetchProduct(ctx context.Context, id int) (*models.Product, error) {
	var p models.Product
	err := pc.DB.QueryRowContext(ctx, `
		SELECT id, name, description, price, quantity, COALESCE(image_url, ''), COALESCE(created_by, ''), created_at
		FROM products WHERE id = ?`,
		id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity, &p.ImageURL, &p.CreatedBy, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type productForm struct {
	Name        string `form:"name" binding:"required"`
	Description string `form:"description"`
	Price       string `form:"price" binding:"required"`
	Quantity    string `form:"quantity" binding:"required"`
}

func (pc *ProductController) validateForm(c *gin.Context, form *productForm) (decimal.Decimal, int, bool) {
	price, err := decimal.NewFromString(form.Price)
	if err != nil || !price.IsPositive() || price.GreaterThan(models.MaxProductPrice) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid price. Price must be between 0 and 999,999.99"})
		return decimal.Zero, 0, false
	}

	quantity, err := strconv.Atoi(form.Quantity)
	if err != nil || quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid quantity. Quantity must be 0 or greater"})
		return decimal.Zero, 0, false
	}

	return price, quantity, true
}

// saveImage stores the uploaded file under the upload dir with a uuid
// name to avoid collisions. Missing file is not an error: image is
// optional on create and means keep-existing on update.
func (pc *ProductController) saveImage(c *gin.Context, file *multipart.FileHeader) (string, error) {
	name := uuid.New().String() + filepath.Ext(file.Filename)
	dst := filepath.Join(pc.UploadDir, name)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		return "", err
	}
	return "/" + filepath.ToSlash(dst), nil
}

func (pc *ProductController) AddProduct(c *gin.Context) {
	userID, _ := middlewares.UserID(c)

	var form productForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	price, quantity, ok := pc.validateForm(c, &form)
	if !ok {
		return
	}

	var imageURL string
	if file, err := c.FormFile("image"); err == nil {
		url, err := pc.saveImage(c, file)
		if err != nil {
			log.Printf("Error saving product image: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error saving image"})
			return
		}
		imageURL = url
	}

	res, err := pc.DB.ExecContext(c.Request.Context(), `
		INSERT INTO products (name, description, price, quantity, image_url, created_by)
		VALUES (?, ?, ?, ?, ?, ?)`,
		form.Name, form.Description, price, quantity, imageURL, userID,
	)
	if err != nil {
		log.Printf("Error adding product: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error adding product"})
		return
	}

	id, _ := res.LastInsertId()
	c.JSON(http.StatusCreated, gin.H{
		"message":   "Product added successfully",
		"productId": id,
	})
}

func (pc *ProductController) UpdateProduct(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid product ID"})
		return
	}

	var form productForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	price, quantity, ok := pc.validateForm(c, &form)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	existing, err := pc.fetchProduct(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error updating product"})
		return
	}

	imageURL := existing.ImageURL
	if file, fileErr := c.FormFile("image"); fileErr == nil {
		url, saveErr := pc.saveImage(c, file)
		if saveErr != nil {
			log.Printf("Error saving product image: %v", saveErr)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error saving image"})
			return
		}
		imageURL = url
	}

	_, err = pc.DB.ExecContext(ctx,
		"UPDATE products SET name=?, description=?, price=?, quantity=?, image_url=? WHERE id=?",
		form.Name, form.Description, price, quantity, imageURL, id,
	)
	if err != nil {
		log.Printf("Error updating product: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error updating product"})
		return
	}

	if pc.Cache != nil {
		if err := pc.Cache.InvalidateProduct(ctx, id); err != nil {
			log.Printf("Error invalidating product %d cache: %v", id, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"product": gin.H{
			"id":          id,
			"name":        form.Name,
			"description": form.Description,
			"price":       price,
			"quantity":    quantity,
			"image_url":   imageURL,
		},
	})
}

func (pc *ProductController) DeleteProduct(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid product ID"})
		return
	}

	ctx := c.Request.Context()

	res, err := pc.DB.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		log.Printf("Error deleting product: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error deleting product"})
		return
	}

	if n, _ := res.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
		return
	}

	if pc.Cache != nil {
		if err := pc.Cache.InvalidateProduct(ctx, id); err != nil {
			log.Printf("Error invalidating product %d cache: %v", id, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
