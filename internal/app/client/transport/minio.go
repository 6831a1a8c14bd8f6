package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/exp/slog"

	"savesync/internal/errs"
)

const (
	metaChecksum  = "checksum"
	metaVersion   = "version"
	metaLastSaved = "last-saved"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// MinioBackend хранит слоты как объекты saves/<user>/<slot> в S3-совместимом хранилище.
type MinioBackend struct {
	client *minio.Client
	bucket string
	region string
	log    *slog.Logger
}

func NewMinioBackend(cfg MinioConfig, log *slog.Logger) (*MinioBackend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupAuto,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации клиента MinIO: %w", err)
	}

	return &MinioBackend{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		log:    log.With(slog.String("component", "minio_backend")),
	}, nil
}

// EnsureBucket создает бакет, если его нет.
func (m *MinioBackend) EnsureBucket(ctx context.Context) error {
	ok, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("ошибка проверки бакета %s: %w", m.bucket, err)
	}
	if ok {
		return nil
	}

	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return fmt.Errorf("ошибка создания бакета %s: %w", m.bucket, err)
	}
	m.log.Info("Создан бакет", "bucket", m.bucket)

	return nil
}

func (m *MinioBackend) Put(ctx context.Context, id Identity, rec RemoteRecord) (RemoteRecord, error) {
	key := objectKey(id.UserID, rec.SlotID)

	info, err := m.client.PutObject(ctx, m.bucket, key,
		bytes.NewReader(rec.Data), int64(len(rec.Data)),
		minio.PutObjectOptions{
			ContentType: "application/octet-stream",
			UserMetadata: map[string]string{
				metaChecksum:  rec.Checksum,
				metaVersion:   strconv.Itoa(rec.Version),
				metaLastSaved: rec.LastSaved.UTC().Format(time.RFC3339Nano),
			},
		},
	)
	if err != nil {
		return RemoteRecord{}, m.mapError("minio.put", err)
	}

	rec.ID = info.ETag
	rec.UpdatedAt = info.LastModified
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}

	return rec, nil
}

func (m *MinioBackend) Get(ctx context.Context, id Identity, slot int) (RemoteRecord, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectKey(id.UserID, slot), minio.GetObjectOptions{})
	if err != nil {
		return RemoteRecord{}, m.mapError("minio.get", err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return RemoteRecord{}, m.mapError("minio.get", err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return RemoteRecord{}, m.mapError("minio.get", err)
	}

	rec := recordFromInfo(slot, info)
	rec.Data = data

	return rec, nil
}

func (m *MinioBackend) Delete(ctx context.Context, id Identity, slot int) error {
	key := objectKey(id.UserID, slot)

	// RemoveObject не сообщает об отсутствии объекта
	if _, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err != nil {
		return m.mapError("minio.delete", err)
	}

	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return m.mapError("minio.delete", err)
	}

	return nil
}

func (m *MinioBackend) List(ctx context.Context, id Identity) ([]RemoteRecord, error) {
	prefix := userPrefix(id.UserID)

	var recs []RemoteRecord
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, m.mapError("minio.list", obj.Err)
		}

		slot, ok := parseSlot(prefix, obj.Key)
		if !ok {
			continue
		}

		info, err := m.client.StatObject(ctx, m.bucket, obj.Key, minio.StatObjectOptions{})
		if err != nil {
			m.log.Warn("Не удалось прочитать метаданные объекта", "key", obj.Key, "error", err)
			continue
		}

		recs = append(recs, recordFromInfo(slot, info))
	}

	return recs, nil
}

func (m *MinioBackend) Ping(ctx context.Context) error {
	ok, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("хранилище недоступно: %w", err)
	}
	if !ok {
		return fmt.Errorf("бакет %s не найден", m.bucket)
	}
	return nil
}

func (m *MinioBackend) mapError(op string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey":
		return errs.E(op, errs.NotFound, err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return errs.E(op, errs.NotAuthenticated, err)
	}

	var netErr net.Error
	if resp.Code == "" && errors.As(err, &netErr) {
		return errs.E(op, errs.NotConnected, err)
	}

	if resp.Code != "" {
		m.log.Debug("Ошибка MinIO",
			"code", resp.Code,
			"message", resp.Message,
			"key", resp.Key,
			"bucket", resp.BucketName,
		)
	}

	return errs.E(op, errs.Unknown, err)
}

func recordFromInfo(slot int, info minio.ObjectInfo) RemoteRecord {
	rec := RemoteRecord{
		ID:        info.ETag,
		SlotID:    slot,
		Checksum:  metaValue(info.UserMetadata, metaChecksum),
		UpdatedAt: info.LastModified,
	}

	if v, err := strconv.Atoi(metaValue(info.UserMetadata, metaVersion)); err == nil {
		rec.Version = v
	}
	if ts, err := time.Parse(time.RFC3339Nano, metaValue(info.UserMetadata, metaLastSaved)); err == nil {
		rec.LastSaved = ts
	}

	return rec
}

// metaValue ищет ключ без учета регистра и префикса X-Amz-Meta-.
func metaValue(meta map[string]string, key string) string {
	for k, v := range meta {
		k = strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-")
		if k == key {
			return v
		}
	}
	return ""
}

func userPrefix(user string) string {
	return "saves/" + user + "/"
}

func objectKey(user string, slot int) string {
	return userPrefix(user) + strconv.Itoa(slot)
}

func parseSlot(prefix, key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok || strings.Contains(rest, "/") {
		return 0, false
	}
	slot, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return slot, true
}
