package redis

// putUsageScript atomically writes a usage document and indexes its phone number
const putUsageScript = `
local usage_key = KEYS[1]   -- timeleak:usage:{phoneNumber}
local index_key = KEYS[2]   -- timeleak:usage:index

local phone_number = ARGV[1]
local document = ARGV[2]

redis.call('SET', usage_key, document)
redis.call('SADD', index_key, phone_number)

return 'OK'
`
