package output

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tsinghua-fib-lab/flocksim-go/entity/vehicle"
	"github.com/tsinghua-fib-lab/flocksim-go/task"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	batchSize    = 100              // 指标批量写入的条数
	writeTimeout = 10 * time.Second // 单次写入超时
)

// MetricsRecord 写入数据库的一步指标
type MetricsRecord struct {
	Job          string `bson:"job"`
	task.Metrics `bson:",inline"`
}

// ResultRecord 写入数据库的结果汇总
type ResultRecord struct {
	Job         string    `bson:"job"`
	CreatedAt   time.Time `bson:"created_at"`
	task.Result `bson:",inline"`
}

// NewMetricsRecord 构造指标记录
func NewMetricsRecord(job string, m task.Metrics) MetricsRecord {
	return MetricsRecord{Job: job, Metrics: m}
}

// NewResultRecord 构造结果记录
// 参数：withHistory-是否保留完整指标历史（逐步指标已单独写入时可以省略）
func NewResultRecord(job string, r task.Result, withHistory bool, now time.Time) ResultRecord {
	if !withHistory {
		r.History = nil
	}
	return ResultRecord{Job: job, CreatedAt: now, Result: r}
}

// metricsWriter 指标批量写入的目标，由*mongo.Collection实现
type metricsWriter interface {
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

// Recorder 将仿真输出写入MongoDB的观察者
// 功能：按间隔采样逐步指标，攒满一批后在后台写入，仿真完成时写入结果汇总
// 说明：任一集合为nil时跳过对应的写入；OnTick不等待数据库，后台写入的错误由Flush返回
type Recorder struct {
	job      string
	metrics  metricsWriter
	result   *mongo.Collection
	interval int64

	mu      sync.Mutex
	buffer  []any
	errs    []error
	pending sync.WaitGroup
}

// NewRecorder 创建Recorder
// 参数：job-任务名，写入每条记录；metrics/result-目标集合；interval-指标采样间隔（步）
func NewRecorder(job string, metrics, result *mongo.Collection, interval int) *Recorder {
	var w metricsWriter
	if metrics != nil {
		w = metrics
	}
	return newRecorder(job, w, result, interval)
}

func newRecorder(job string, metrics metricsWriter, result *mongo.Collection, interval int) *Recorder {
	return &Recorder{
		job:      job,
		metrics:  metrics,
		result:   result,
		interval: int64(max(interval, 1)),
	}
}

// sampled 该步指标是否需要记录
func (r *Recorder) sampled(step int64) bool {
	return r.metrics != nil && step%r.interval == 0
}

// OnTick 记录采样的指标，攒满一批后交给后台写入
func (r *Recorder) OnTick(_ []vehicle.Snapshot, m task.Metrics) error {
	if !r.sampled(m.Step) {
		return nil
	}
	r.mu.Lock()
	r.buffer = append(r.buffer, NewMetricsRecord(r.job, m))
	var docs []any
	if len(r.buffer) >= batchSize {
		docs, r.buffer = r.buffer, nil
	}
	r.mu.Unlock()
	if docs != nil {
		r.pending.Add(1)
		go func() {
			defer r.pending.Done()
			if err := r.write(context.Background(), docs); err != nil {
				log.Errorf("background write: %v", err)
				r.mu.Lock()
				r.errs = append(r.errs, err)
				r.mu.Unlock()
			}
		}()
	}
	return nil
}

// OnComplete 写入剩余指标与结果汇总
func (r *Recorder) OnComplete(result task.Result) error {
	ctx := context.Background()
	if err := r.Flush(ctx); err != nil {
		return err
	}
	if r.result == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	record := NewResultRecord(r.job, result, r.metrics == nil, time.Now())
	if _, err := r.result.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	log.Infof("result of %s written to %s.%s", result.ID, r.result.Database().Name(), r.result.Name())
	return nil
}

// Flush 等待后台写入结束并写入缓冲中的指标，仿真被停止时由调用方显式调用
// 返回：此前后台写入与本次写入的全部错误
func (r *Recorder) Flush(ctx context.Context) error {
	r.pending.Wait()
	r.mu.Lock()
	docs := r.buffer
	r.buffer = nil
	errs := r.errs
	r.errs = nil
	r.mu.Unlock()
	if len(docs) > 0 && r.metrics != nil {
		errs = append(errs, r.write(ctx, docs))
	}
	return errors.Join(errs...)
}

// write 批量写入一批指标
func (r *Recorder) write(ctx context.Context, docs []any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	res, err := r.metrics.InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("insert %d metrics records: %w", len(docs), err)
	}
	log.Debugf("%d metrics records written", len(res.InsertedIDs))
	return nil
}
