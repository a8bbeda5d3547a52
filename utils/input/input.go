package input

import (
	"context"
	"fmt"
	"os"

	"git.fiblab.net/general/common/v2/mongoutil"
	"github.com/tsinghua-fib-lab/flocksim-go/entity"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/road"
	"github.com/tsinghua-fib-lab/flocksim-go/utils/config"
	"github.com/tsinghua-fib-lab/flocksim-go/utils/randengine"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/yaml.v2"
)

const (
	classNode = "node"
	classEdge = "edge"
)

// LoadNetwork 加载路网
// 功能：根据配置从文件、MongoDB或网格生成器获得路网
// 参数：ctx-上下文，c-配置，engine-网格生成使用的随机数引擎
// 返回：校验过的路网
// 算法说明：
// 1. 配置了文件时从YAML文件加载
// 2. 配置了MongoDB集合时读取class为node与edge的文档
// 3. 否则按网格参数（缺省为默认网格）生成
func LoadNetwork(ctx context.Context, c config.Config, engine *randengine.Engine) (*road.Network, error) {
	in := c.Input.Network
	switch {
	case in.File != "":
		data, err := os.ReadFile(in.File)
		if err != nil {
			return nil, fmt.Errorf("%w: read network file: %v", entity.ErrConfiguration, err)
		}
		log.Infof("load network from file %s", in.File)
		return ParseNetwork(data)
	case in.Mongo != nil:
		client := mongoutil.NewClient(c.Input.URI)
		defer client.Disconnect(context.Background())
		return loadFromMongo(ctx, mongoutil.GetMongoColl(client, *in.Mongo), *in.Mongo)
	default:
		opts := road.DefaultGridOptions()
		if in.Grid != nil {
			opts = *in.Grid
		}
		return road.Generate(opts, engine)
	}
}

// ParseNetwork 解析YAML格式的路网
func ParseNetwork(data []byte) (*road.Network, error) {
	var doc networkDoc
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse network: %v", entity.ErrConfiguration, err)
	}
	return build(doc.Nodes, doc.Edges, doc.Bounds)
}

// rawDoc 数据库中的一条记录
type rawDoc struct {
	Class string   `bson:"class"`
	Data  bson.Raw `bson:"data"`
}

// loadFromMongo 从集合读取路网
// 说明：每条记录形如 {class: node|edge, data: {...}}，其他class的记录忽略
func loadFromMongo(ctx context.Context, coll *mongo.Collection, path config.InputPath) (*road.Network, error) {
	log.Infof("start fetching network from %s.%s", path.DB, path.Col)
	cursor, err := coll.Find(ctx, bson.M{"class": bson.M{"$in": bson.A{classNode, classEdge}}})
	if err != nil {
		return nil, fmt.Errorf("find network documents: %w", err)
	}
	defer cursor.Close(ctx)
	var (
		nodes []nodeDoc
		edges []edgeDoc
	)
	for cursor.Next(ctx) {
		var raw rawDoc
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode network document: %w", err)
		}
		nodes, edges, err = appendDoc(nodes, edges, raw)
		if err != nil {
			return nil, err
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate network documents: %w", err)
	}
	log.Infof("finish fetching network from %s.%s: %d nodes, %d edges", path.DB, path.Col, len(nodes), len(edges))
	return build(nodes, edges, nil)
}

// appendDoc 按class解码一条记录
func appendDoc(nodes []nodeDoc, edges []edgeDoc, raw rawDoc) ([]nodeDoc, []edgeDoc, error) {
	switch raw.Class {
	case classNode:
		var d nodeDoc
		if err := bson.Unmarshal(raw.Data, &d); err != nil {
			return nil, nil, fmt.Errorf("%w: decode node: %v", entity.ErrConfiguration, err)
		}
		nodes = append(nodes, d)
	case classEdge:
		var d edgeDoc
		if err := bson.Unmarshal(raw.Data, &d); err != nil {
			return nil, nil, fmt.Errorf("%w: decode edge: %v", entity.ErrConfiguration, err)
		}
		edges = append(edges, d)
	default:
		log.Warnf("ignore document with class %q", raw.Class)
	}
	return nodes, edges, nil
}
