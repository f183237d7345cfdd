package password

import (
	"golang.org/x/crypto/bcrypt"
)

// bcrypt代价因子
// 家长端多为移动设备弱网登录，取默认值兼顾验证延迟与暴力破解成本
const hashCost = bcrypt.DefaultCost

// Hash 生成账号密码的bcrypt哈希，数据库只存哈希
func Hash(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), hashCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify 登录时校验明文密码与存储的哈希是否匹配
func Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
