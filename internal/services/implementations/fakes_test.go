package implementations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jewelry-catalog/internal/domain/catalog"
	"jewelry-catalog/internal/domain/ingest"
	"jewelry-catalog/internal/platform/cache"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testSource(t *testing.T, name string) *ingest.SourceImage {
	t.Helper()
	return &ingest.SourceImage{Data: testPNG(t, 40, 30), ContentType: "image/png", Filename: name}
}

type compressFunc func(ctx context.Context, src *ingest.SourceImage, opts ingest.CompressionOptions) ([]byte, error)

type fakeCompressor struct {
	mu    sync.Mutex
	calls int
	fn    compressFunc
}

func (f *fakeCompressor) Compress(ctx context.Context, src *ingest.SourceImage, opts ingest.CompressionOptions) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, src, opts)
	}
	return src.Data, nil
}

func (f *fakeCompressor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTransformer struct {
	err error
}

func (f *fakeTransformer) Transform(_ context.Context, data []byte, policy ingest.Policy) (*ingest.ProcessedImage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ingest.ProcessedImage{
		Data:        append([]byte(nil), data...),
		ContentType: ingest.OutputContentType,
		Width:       policy.Width,
		Height:      policy.Height,
		Policy:      policy,
	}, nil
}

type uploadFunc func(ctx context.Context, img *ingest.ProcessedImage, bucket, filename string) (*ingest.StoredImageReference, error)

type fakeUploader struct {
	mu    sync.Mutex
	calls int
	fn    uploadFunc
}

func (f *fakeUploader) Upload(ctx context.Context, img *ingest.ProcessedImage, bucket, filename string) (*ingest.StoredImageReference, error) {
	f.mu.Lock()
	f.calls++
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, img, bucket, filename)
	}
	key := "key" + ingest.FileExtension(filename)
	return &ingest.StoredImageReference{Bucket: bucket, Key: key, URL: "http://cdn.test/" + bucket + "/" + key}, nil
}

func (f *fakeUploader) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memoryStore is an in-memory ingest.ObjectStore.
type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	opts    map[string]ingest.PutOptions

	putErr    error
	urlErr    error
	removeErr error
	removed   []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, opts: map[string]ingest.PutOptions{}}
}

func (m *memoryStore) Put(_ context.Context, bucket, key string, data []byte, opts ingest.PutOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	if _, exists := m.objects[bucket+"/"+key]; exists && opts.NoOverwrite {
		return ingest.ErrObjectExists
	}
	m.objects[bucket+"/"+key] = data
	m.opts[bucket+"/"+key] = opts
	return nil
}

func (m *memoryStore) PublicURL(bucket, key string) (string, error) {
	if m.urlErr != nil {
		return "", m.urlErr
	}
	return "http://cdn.test/" + bucket + "/" + key, nil
}

func (m *memoryStore) ObjectKey(bucket, publicURL string) (string, error) {
	prefix := "http://cdn.test/" + bucket + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return "", errors.New("url does not belong to bucket")
	}
	return strings.TrimPrefix(publicURL, prefix), nil
}

func (m *memoryStore) Remove(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.objects, bucket+"/"+key)
	m.removed = append(m.removed, bucket+"/"+key)
	return nil
}

// memoryCache is a JSON round-tripping catalog.Cache.
type memoryCache struct {
	mu          sync.Mutex
	values      map[string][]byte
	invalidated []string
	getErr      error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string, result any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return c.getErr
	}
	data, ok := c.values[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, result)
}

func (c *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = data
	return nil
}

func (c *memoryCache) InvalidatePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, prefix)
	for key := range c.values {
		if strings.HasPrefix(key, prefix) {
			delete(c.values, key)
		}
	}
	return nil
}

// fakeProductRepo keeps products in memory and counts list calls.
type fakeProductRepo struct {
	products  map[int]*catalog.Product
	nextID    int
	listCalls int
	filters   []catalog.ProductFilter
	listed    []*catalog.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: map[int]*catalog.Product{}, nextID: 1}
}

func (r *fakeProductRepo) Create(_ context.Context, p *catalog.Product) error {
	p.ID = r.nextID
	r.nextID++
	copied := *p
	r.products[p.ID] = &copied
	return nil
}

func (r *fakeProductRepo) Update(_ context.Context, p *catalog.Product) error {
	if _, ok := r.products[p.ID]; !ok {
		return catalog.NotFound("product", p.ID)
	}
	copied := *p
	r.products[p.ID] = &copied
	return nil
}

func (r *fakeProductRepo) Delete(_ context.Context, id int) error {
	if _, ok := r.products[id]; !ok {
		return catalog.NotFound("product", id)
	}
	delete(r.products, id)
	return nil
}

func (r *fakeProductRepo) GetByID(_ context.Context, id int) (*catalog.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, catalog.NotFound("product", id)
	}
	return p, nil
}

func (r *fakeProductRepo) GetBySlug(_ context.Context, slug string) (*catalog.Product, error) {
	for _, p := range r.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, catalog.NotFound("product", slug)
}

func (r *fakeProductRepo) List(_ context.Context, filter catalog.ProductFilter) ([]*catalog.Product, error) {
	r.listCalls++
	r.filters = append(r.filters, filter)
	return r.listed, nil
}

type fakeCarouselRepo struct {
	items   map[int]*catalog.CarouselItem
	deleted []int
}

func (r *fakeCarouselRepo) List(context.Context) ([]*catalog.CarouselItem, error) {
	out := make([]*catalog.CarouselItem, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, nil
}

func (r *fakeCarouselRepo) GetByID(_ context.Context, id int) (*catalog.CarouselItem, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, catalog.NotFound("carousel item", id)
	}
	return item, nil
}

func (r *fakeCarouselRepo) Create(_ context.Context, item *catalog.CarouselItem) error {
	item.ID = len(r.items) + 1
	r.items[item.ID] = item
	return nil
}

func (r *fakeCarouselRepo) Update(_ context.Context, item *catalog.CarouselItem) error {
	r.items[item.ID] = item
	return nil
}

func (r *fakeCarouselRepo) Delete(_ context.Context, id int) error {
	delete(r.items, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type fakeStockRepo struct {
	items     []*catalog.StockItem
	listCalls int
	created   []*catalog.StockItem
}

func (r *fakeStockRepo) List(context.Context) ([]*catalog.StockItem, error) {
	r.listCalls++
	return r.items, nil
}

func (r *fakeStockRepo) GetByID(_ context.Context, id int) (*catalog.StockItem, error) {
	for _, item := range r.items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, catalog.NotFound("stock item", id)
}

func (r *fakeStockRepo) Create(_ context.Context, item *catalog.StockItem) error {
	item.ID = len(r.items) + 1
	r.created = append(r.created, item)
	r.items = append(r.items, item)
	return nil
}

func (r *fakeStockRepo) Update(context.Context, *catalog.StockItem) error { return nil }

func (r *fakeStockRepo) Delete(context.Context, int) error { return nil }

type fakeTaxonomyRepo struct {
	categories []*catalog.Category
	materials  []*catalog.Material
	deleteErr  error
}

func (r *fakeTaxonomyRepo) ListCategories(context.Context) ([]*catalog.Category, error) {
	return r.categories, nil
}

func (r *fakeTaxonomyRepo) CreateCategory(_ context.Context, c *catalog.Category) error {
	c.ID = len(r.categories) + 1
	r.categories = append(r.categories, c)
	return nil
}

func (r *fakeTaxonomyRepo) DeleteCategory(context.Context, int) error { return r.deleteErr }

func (r *fakeTaxonomyRepo) ListMaterials(context.Context) ([]*catalog.Material, error) {
	return r.materials, nil
}

func (r *fakeTaxonomyRepo) CreateMaterial(_ context.Context, m *catalog.Material) error {
	m.ID = len(r.materials) + 1
	r.materials = append(r.materials, m)
	return nil
}

func (r *fakeTaxonomyRepo) DeleteMaterial(context.Context, int) error { return r.deleteErr }

type fakeCustomOrderRepo struct {
	created []*catalog.CustomOrderRequest
	limit   int
}

func (r *fakeCustomOrderRepo) Create(_ context.Context, req *catalog.CustomOrderRequest) error {
	req.ID = len(r.created) + 1
	r.created = append(r.created, req)
	return nil
}

func (r *fakeCustomOrderRepo) List(_ context.Context, limit int) ([]*catalog.CustomOrderRequest, error) {
	r.limit = limit
	return r.created, nil
}
