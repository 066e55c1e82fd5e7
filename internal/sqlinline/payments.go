package sqlinline

const QInsertPayment = `--sql d27f1876-8224-4100-a12b-1ed0a2d56d51
insert into payments (id, user_id, amount, currency, provider, status, subscription_type,
                      subscription_period, expires_at, stripe_payment_intent_id, created_at)
values (gen_random_uuid(), $1::uuid, $2::bigint, $3::text, $4::text, $5::text, $6::text,
        $7::text, $8::timestamptz, $9::text, now())
returning id;
`

const QSelectPaymentByID = `--sql af51028e-7855-4513-9ff3-dfe97c3a4efc
select id, user_id, amount, currency, provider, status, subscription_type, subscription_period,
       expires_at, coalesce(stripe_payment_intent_id, ''), coalesce(telegram_charge_id, ''), created_at
from payments
where id = $1::uuid;
`

const QMarkPaymentSucceeded = `--sql a4dc4ec8-846b-4569-b881-c9d9cd618721
update payments
set status = 'succeeded',
    telegram_charge_id = $2::text
where id = $1::uuid;
`

const QListPaymentsByUser = `--sql dc150caa-c530-4dd4-8c03-346fa6b72e6a
select id, amount, currency, provider, status, subscription_type, subscription_period, expires_at, created_at
from payments
where user_id = $1::uuid
order by created_at desc
limit $2::int offset $3::int;
`

const QCountPaymentsByUser = `--sql d9eeccbc-eaa0-46b9-a33a-16bb06975932
select count(*) from payments where user_id = $1::uuid;
`
